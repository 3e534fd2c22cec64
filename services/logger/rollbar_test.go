package logsvc

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/attendance"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	actor := attendance.Actor{ID: 7, Name: "Ada"}
	extras := map[string]interface{}{"section_id": 3}
	logger.Warn("calendar gap", errors.New("no bimester covers 2025-05-14"), extras, actor)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "WARN: calendar gap"))
	assert.Contains(t, out, "no bimester covers 2025-05-14")
	assert.Contains(t, out, "section_id:3")

	args := logger.prepare("msg", []interface{}{actor, extras, attendance.Actor{ID: 8}})
	assert.Equal(t, []interface{}{"msg", extras}, args, "actors are not sent as extras")
}
