package process

// Notes:
// - Only non-existent and non-positive PIDs are exercised; killing a real
//   process group is covered by the renderer integration tests.

import "testing"

func TestKillProcessGroup_Ignored(t *testing.T) {
	t.Parallel()

	for _, pid := range []int{0, -1, 999999999} {
		KillProcessGroup(pid)
	}
}
