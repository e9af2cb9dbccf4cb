package pipeline

import (
	"io/fs"
	"runtime"
	"syscall"
	"time"
)

// fileTimesMS extracts created/modified/accessed timestamps in Unix
// milliseconds. modified is the file's ModTime. On Linux, accessed is the
// stat_t access time and created is the inode change time (ctime), since
// stat_t carries no creation time; when info.Sys() is not a
// *syscall.Stat_t, both are nowMS.
func fileTimesMS(info fs.FileInfo, nowMS int64) (createdMS, modifiedMS, accessedMS int64) {
	modifiedMS = info.ModTime().UnixMilli()
	createdMS = nowMS
	accessedMS = nowMS

	if runtime.GOOS == "linux" {
		if stat, ok := info.Sys().(*syscall.Stat_t); ok {
			accessedMS = time.Unix(stat.Atim.Sec, stat.Atim.Nsec).UnixMilli()
			createdMS = time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec).UnixMilli()
		}
	}
	return createdMS, modifiedMS, accessedMS
}
