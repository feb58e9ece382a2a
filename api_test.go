package main

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rehagrip/rehagrip/motor"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestAPI(t *testing.T) (*MotorAPI, *motor.SimDriver) {
	sim := motor.NewSimDriver()
	t.Cleanup(func() { sim.Close() })

	ctrl, err := motor.NewController(motor.DefaultConfig(), sim)
	if err != nil {
		t.Fatal(err)
	}

	dir, err := ioutil.TempDir("", "rehagrip-api")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	presets, err := motor.NewPresetStore(filepath.Join(dir, "presets.json"))
	if err != nil {
		t.Fatal(err)
	}

	return &MotorAPI{Ctrl: ctrl, Presets: presets}, sim
}

func apiRequest(api *MotorAPI, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Add("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	api.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeBody(rr *httptest.ResponseRecorder) map[string]interface{} {
	out := make(map[string]interface{})
	json.Unmarshal(rr.Body.Bytes(), &out)
	return out
}

func TestMoveEndpoint(t *testing.T) {
	Convey("A permitted move returns the staged target", t, func() {
		api, _ := newTestAPI(t)

		rr := apiRequest(api, "POST", "/move", map[string]interface{}{"position": 30})
		So(rr.Code, ShouldEqual, http.StatusOK)

		body := decodeBody(rr)
		So(body["ok"], ShouldEqual, true)
		So(body["target_tick"], ShouldEqual, float64(motor.DegreesToTick(motor.RightCenterTick, motor.HandRight, 30)))
		So(body["requested_degrees"], ShouldEqual, float64(30))
	})

	Convey("An interlocked move is a 409 naming the interlock", t, func() {
		api, _ := newTestAPI(t)
		api.Ctrl.SetLock(true)

		rr := apiRequest(api, "POST", "/move", map[string]interface{}{"position": 30})
		So(rr.Code, ShouldEqual, http.StatusConflict)
		So(decodeBody(rr)["interlock"], ShouldEqual, "locked")
	})

	Convey("A bad velocity is a 422", t, func() {
		api, _ := newTestAPI(t)

		rr := apiRequest(api, "POST", "/move", map[string]interface{}{"position": 30, "velocity": 400})
		So(rr.Code, ShouldEqual, http.StatusUnprocessableEntity)
	})

	Convey("A bad hand never reaches the controller", t, func() {
		api, _ := newTestAPI(t)

		rr := apiRequest(api, "POST", "/move", map[string]interface{}{"position": 30, "hand": "both"})
		So(rr.Code, ShouldEqual, http.StatusBadRequest)
	})
}

func TestStatusEndpoint(t *testing.T) {
	Convey("Status is a full snapshot", t, func() {
		api, _ := newTestAPI(t)

		rr := apiRequest(api, "POST", "/status", nil)
		So(rr.Code, ShouldEqual, http.StatusOK)

		body := decodeBody(rr)
		So(body["changed"], ShouldEqual, true)
		So(body["hand"], ShouldEqual, "right")
		So(body["center_tick"], ShouldEqual, float64(motor.RightCenterTick))
		So(body["moving"], ShouldEqual, false)

		Convey("and a poller holding the version gets a short-circuit", func() {
			version := body["version"].(float64)
			rr := apiRequest(api, "POST", "/status?since="+strconv.FormatUint(uint64(version), 10), nil)
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(decodeBody(rr)["changed"], ShouldEqual, false)
		})
	})
}

func TestHandEndpoint(t *testing.T) {
	Convey("Switching hands re-homes at the new center", t, func() {
		api, _ := newTestAPI(t)

		rr := apiRequest(api, "POST", "/hand", map[string]interface{}{"hand": "left"})
		So(rr.Code, ShouldEqual, http.StatusOK)

		body := decodeBody(rr)
		So(body["hand"], ShouldEqual, "left")
		So(body["center_tick"], ShouldEqual, float64(motor.LeftCenterTick))
	})

	Convey("An unknown hand is rejected", t, func() {
		api, _ := newTestAPI(t)

		rr := apiRequest(api, "POST", "/hand", map[string]interface{}{"hand": "middle"})
		So(rr.Code, ShouldEqual, http.StatusUnprocessableEntity)
	})
}

func TestInterlockEndpoints(t *testing.T) {
	Convey("The flag endpoints echo the new state", t, func() {
		api, sim := newTestAPI(t)

		rr := apiRequest(api, "POST", "/lock", map[string]interface{}{"locked": true})
		So(decodeBody(rr)["locked"], ShouldEqual, true)

		rr = apiRequest(api, "POST", "/torque", map[string]interface{}{"torque": false})
		So(decodeBody(rr)["torque"], ShouldEqual, false)
		So(sim.TorqueEnabled(), ShouldBeFalse)

		rr = apiRequest(api, "POST", "/emergency", map[string]interface{}{"stop": true})
		So(decodeBody(rr)["emergency"], ShouldEqual, true)
	})
}

func TestRangeEndpoints(t *testing.T) {
	Convey("get_range reflects the active calibration", t, func() {
		api, _ := newTestAPI(t)

		rr := apiRequest(api, "POST", "/get_range", nil)
		So(rr.Code, ShouldEqual, http.StatusOK)

		body := decodeBody(rr)
		So(body["center_tick"], ShouldEqual, float64(motor.RightCenterTick))
		So(body["total_range"].(float64), ShouldAlmostEqual, 360, 1)
	})

	Convey("recenter reports the fresh mid-scale center", t, func() {
		api, _ := newTestAPI(t)

		rr := apiRequest(api, "POST", "/recenter", nil)
		So(rr.Code, ShouldEqual, http.StatusOK)

		body := decodeBody(rr)
		So(body["center_tick"].(float64), ShouldAlmostEqual, 2048, 1)
		So(body["available_range_degrees"].(float64), ShouldAlmostEqual, 360, 1)
	})
}

func TestPresetEndpoints(t *testing.T) {
	Convey("The preset lifecycle works end to end", t, func() {
		api, _ := newTestAPI(t)

		rr := apiRequest(api, "GET", "/presets", nil)
		So(rr.Code, ShouldEqual, http.StatusOK)
		So(decodeBody(rr)["count"], ShouldEqual, float64(3))

		rr = apiRequest(api, "POST", "/presets", map[string]interface{}{
			"presets": []map[string]interface{}{
				{"name": "A", "pos": -1000},
				{"name": "B", "pos": 0},
				{"name": "C", "pos": 1000},
			},
		})
		So(rr.Code, ShouldEqual, http.StatusOK)

		var saved struct {
			Presets []motor.Preset `json:"presets"`
		}
		So(json.Unmarshal(rr.Body.Bytes(), &saved), ShouldBeNil)
		So(saved.Presets, ShouldResemble, []motor.Preset{{Name: "A", Pos: -60}, {Name: "B", Pos: 0}, {Name: "C", Pos: 60}})

		rr = apiRequest(api, "POST", "/presets/reload", nil)
		So(rr.Code, ShouldEqual, http.StatusOK)
		So(decodeBody(rr)["count"], ShouldEqual, float64(3))
	})

	Convey("A save without a presets list is a 400", t, func() {
		api, _ := newTestAPI(t)

		rr := apiRequest(api, "POST", "/presets", map[string]interface{}{})
		So(rr.Code, ShouldEqual, http.StatusBadRequest)
	})
}
