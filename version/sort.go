package version

import (
	"github.com/blang/semver"
)

// ByVersion implements the sort.Interface for tag names,
// ordering from highest to lowest semver. Non-semver tags sort last.
type ByVersion []string

func (a ByVersion) Len() int      { return len(a) }
func (a ByVersion) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a ByVersion) Less(i, j int) bool {
	left, leftErr := semver.ParseTolerant(a[i])
	if leftErr != nil {
		return false
	}
	right, rightErr := semver.ParseTolerant(a[j])
	if rightErr != nil {
		return true
	}
	return left.Compare(right) == 1
}
