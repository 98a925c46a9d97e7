//go:build unix

package toolchain

import "golang.org/x/sys/unix"

func readable(path string) error {
	return unix.Access(path, unix.R_OK)
}
