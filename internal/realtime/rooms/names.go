package rooms

import "github.com/labpulse/labpulse/internal/platform"

// BroadcastRoom is the global room every instance fans system-wide events to.
const BroadcastRoom = "broadcast"

// Room names are pure functions of (kind, id): the same logical topic always
// maps to the same name on every instance.

func DeviceRoom(id string) string        { return platform.KindDevice + ":" + id }
func ExperimentRoom(id string) string    { return platform.KindExperiment + ":" + id }
func TaskRoom(id string) string          { return platform.KindTask + ":" + id }
func TaskExecutionRoom(id string) string { return platform.KindTaskExecution + ":" + id }
func UserRoom(id string) string          { return platform.KindUser + ":" + id }
func OrgRoom(id string) string           { return platform.KindOrganization + ":" + id }
