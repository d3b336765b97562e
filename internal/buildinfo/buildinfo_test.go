package buildinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldC, oldB := Version, Commit, BuiltAt
	defer func() { Version, Commit, BuiltAt = oldV, oldC, oldB }()

	Version, Commit, BuiltAt = "v1.0.0", "abc1234", "2024-05-01"
	assert.Equal(t, "tourplan v1.0.0 (abc1234) built 2024-05-01 "+runtime.Version(), String())

	info := Info()
	assert.Equal(t, "v1.0.0", info["version"])
	assert.Equal(t, "abc1234", info["commit"])
	assert.Equal(t, runtime.Version(), info["go"])
}
