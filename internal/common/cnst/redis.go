package cnst

// Redis key prefixes and topics shared by every instance. Keys must be stable
// across versions: a rolling deploy has old and new instances reading the same
// sets concurrently.
const (
	// KeyPrefixSession prefixes per-connection session blobs (TTL bound)
	KeyPrefixSession = "labpulse:session:"
	// KeyPrefixPresence prefixes per-user presence records (TTL bound)
	KeyPrefixPresence = "labpulse:presence:"
	// KeyPrefixUserConns prefixes the user id -> connection ids index
	KeyPrefixUserConns = "labpulse:user:conns:"
	// KeyPrefixUserRooms prefixes the user id -> joined rooms index
	KeyPrefixUserRooms = "labpulse:user:rooms:"
	// KeyPrefixRoomMembers prefixes the room -> member connection ids set
	KeyPrefixRoomMembers = "labpulse:room:members:"

	// TopicEvents is the pub/sub topic used for cross-instance event fan-out
	TopicEvents = "labpulse:events"
)

const (
	// RedisClusterTypeSingle is a standalone Redis server
	RedisClusterTypeSingle = "single"
	// RedisClusterTypeCluster is a Redis cluster
	RedisClusterTypeCluster = "cluster"
	// RedisClusterTypeSentinel is a sentinel-managed Redis deployment
	RedisClusterTypeSentinel = "sentinel"
)
