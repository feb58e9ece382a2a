package motor

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSimDriver(t *testing.T) {
	Convey("The simulator accepts commands instantly", t, func() {
		sim := NewSimDriver()
		defer sim.Close()

		So(sim.Goto(2048, 75), ShouldBeNil)
		So(sim.LastTarget(), ShouldEqual, 2048)

		pos, err := sim.ReadPosition()
		So(err, ShouldBeNil)
		So(pos, ShouldEqual, 2048)

		So(sim.SetTorque(false), ShouldBeNil)
		So(sim.TorqueEnabled(), ShouldBeFalse)
	})

	Convey("The load sample never goes negative", t, func() {
		sim := NewSimDriver()
		defer sim.Close()

		time.Sleep(LOAD_INTERVAL * 3)
		load, err := sim.ReadLoad()
		So(err, ShouldBeNil)
		So(load, ShouldBeGreaterThanOrEqualTo, 0)
	})

	Convey("It reports an acceptable firmware version", t, func() {
		sim := NewSimDriver()
		defer sim.Close()

		fw, err := sim.Firmware()
		So(err, ShouldBeNil)
		So(fw, ShouldEqual, "0.1.0")
	})
}

func TestControllerWithSimulator(t *testing.T) {
	Convey("A controller on the simulator behaves like hardware", t, func() {
		sim := NewSimDriver()
		defer sim.Close()

		ctrl, err := NewController(DefaultConfig(), sim)
		So(err, ShouldBeNil)

		res, err := ctrl.Move(MoveRequest{Degrees: 15})
		So(err, ShouldBeNil)
		So(sim.LastTarget(), ShouldEqual, res.TargetTick)

		for i := 0; i < 50; i++ {
			ctrl.Advance(100 * time.Millisecond)
		}

		state, _ := ctrl.Status(nil)
		So(state.CurrentTick, ShouldEqual, res.TargetTick)
		So(state.PositionDegrees(), ShouldAlmostEqual, 15, kDegTolerance)
	})
}
