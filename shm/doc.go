// Package shm manages named cross-process regions backing data frame
// segments.
//
// # Tiers
//
// A region lives in exactly one of two directories:
//
//   - TierMemory: a tmpfs directory (/dev/shm on Linux). Pages never reach
//     disk and the region disappears on reboot.
//   - TierExternal: a spill directory on persistent storage. Mapping is
//     slower but the region can exceed comfortable physical memory.
//
// The tier is chosen when the region is created and never changes; Open
// finds an existing region by probing both directories.
//
// # Usage
//
//	seg, err := shm.Create(dirs, "df1", shm.TierMemory)
//	if err != nil { ... }
//	defer seg.Close()
//	if err := seg.Truncate(8192); err != nil { ... }
//	view, err := seg.Map(0, 8192, shm.ReadWrite)
//
// # Thread Safety
//
// Segment is not safe for concurrent use. Cross-process ordering of writes
// and reads is left to the caller.
package shm
