//go:build !linux

package build

func exchange(stage, dest string) error {
	return renameAside(stage, dest)
}
