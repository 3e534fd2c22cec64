package dig_container

import (
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/escuela/apps/api/echo"
	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
)

// The graph is only checked, not built: building it needs a database.
func TestNew(t *testing.T) {
	c := New(dig.DryRun(true))

	for name, fn := range map[string]interface{}{
		"server":     func(*echoapi.Server) {},
		"scheduler":  func(*cron.Cron) {},
		"calendar":   func(*calendar.Service) {},
		"attendance": func(*attendance.Service) {},
	} {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, c.Invoke(fn))
		})
	}
}
