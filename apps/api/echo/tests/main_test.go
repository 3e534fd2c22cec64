package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/escuela/apps/api/echo"
	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
	metricsvc "github.com/trezcool/escuela/services/metrics"
	dummydb "github.com/trezcool/escuela/storage/database/dummy"
	"github.com/trezcool/escuela/tests"
)

type testApp struct {
	*Server
	db       *dummydb.DB
	repo     attendance.Repository
	calendar testutil.CalendarFixture
	school   testutil.SchoolFixture
	logger   *testutil.Logger
	metrics  *metricsvc.Recorder
}

func setup(t *testing.T) *testApp {
	t.Helper()

	// set up DB & repos
	db, err := dummydb.Open()
	require.NoError(t, err)
	calRepo := dummydb.NewCalendarRepository(db)
	attRepo := dummydb.NewAttendanceRepository(db)

	app := &testApp{
		db:      db,
		repo:    attRepo,
		logger:  &testutil.Logger{},
		metrics: metricsvc.NewRecorder(),
	}
	app.calendar = testutil.SeedCalendar(t, calRepo)
	app.school = testutil.SeedSchool(db, app.calendar.Cycle.ID)

	// set up services
	conf := &core.Config{AppName: "Escuela", Env: "TEST", TestMode: true}
	validate, translator := core.NewValidator()
	calSvc := calendar.NewService(calRepo, validate, app.logger, calendar.WithObserver(app.metrics))
	attSvc := attendance.NewService(attendance.Deps{
		Repo:      attRepo,
		Calendars: calSvc,
		Validate:  validate,
		Logger:    app.logger,
		Mail:      &testutil.Mailer{},
		Observer:  app.metrics,
	})

	// set up server
	app.Server = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        app.logger,
		CalendarSvc:   calSvc,
		AttendanceSvc: attSvc,
		Validate:      validate,
		Translator:    translator,
		Metrics:       app.metrics,
	})
	return app
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	actor    int64
	wantCode int
	wantData []byte
}

func newActorRequest(method, path string, actor int64, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if actor != 0 {
		req.Header.Set("X-User-ID", strconv.FormatInt(actor, 10))
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newActorRequest(method, path, 0, data...)
}

func (app *testApp) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newActorRequest(method, tt.path, tt.actor, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("unmarshall(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
