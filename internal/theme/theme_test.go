package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/task-notifier/internal/model"
)

func TestCountStyle(t *testing.T) {
	assert.Equal(t, ColorGray, CountStyle("failed", 0).GetForeground())
	assert.Equal(t, ColorRed, CountStyle("failed", 2).GetForeground())
	assert.Equal(t, ColorYellow, CountStyle("skipped", 1).GetForeground())
	assert.Equal(t, ColorGreen, CountStyle("tasks", 3).GetForeground())
}

func TestKindStyle(t *testing.T) {
	assert.Equal(t, ColorBlue, KindStyle(model.KindTask).GetForeground())
	assert.Equal(t, ColorMagenta, KindStyle(model.KindMeeting).GetForeground())
	assert.Equal(t, ColorGray, KindStyle(model.KindOther).GetForeground())
}

func TestFormTheme(t *testing.T) {
	th := Form()
	assert.NotNil(t, th)
	assert.Equal(t, ColorBlue, th.Focused.Title.GetForeground())
}
