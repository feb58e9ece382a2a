package motor

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadConfig(t *testing.T) {
	Convey("A missing file yields the factory defaults", t, func() {
		config, err := LoadConfig("/nonexistent/rehagrip.yaml")
		So(err, ShouldBeNil)
		So(config.CenterFor(HandRight), ShouldEqual, RightCenterTick)
		So(config.CenterFor(HandLeft), ShouldEqual, LeftCenterTick)
		So(config.DefaultVelocity, ShouldEqual, 50)
		So(config.MotionIntervalMs, ShouldEqual, 100)
	})

	Convey("Partial yaml overrides merge over the defaults", t, func() {
		dir, err := ioutil.TempDir("", "rehagrip-config")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		filename := filepath.Join(dir, "rehagrip.yaml")
		yml := "version: 1\nserial:\n  port: /dev/ttyUSB1\ncenters: {right: 2000}\n"
		So(ioutil.WriteFile(filename, []byte(yml), 0644), ShouldBeNil)

		config, err := LoadConfig(filename)
		So(err, ShouldBeNil)
		So(config.Serial.Port, ShouldEqual, "/dev/ttyUSB1")
		So(config.Serial.Baud, ShouldEqual, 57600)
		So(config.CenterFor(HandRight), ShouldEqual, 2000)
		So(config.CenterFor(HandLeft), ShouldEqual, LeftCenterTick)
	})

	Convey("Unknown versions are refused", t, func() {
		dir, err := ioutil.TempDir("", "rehagrip-config")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		filename := filepath.Join(dir, "rehagrip.yaml")
		So(ioutil.WriteFile(filename, []byte("version: 9\n"), 0644), ShouldBeNil)

		_, err = LoadConfig(filename)
		So(err, ShouldNotBeNil)
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Out-of-domain values are invalid input", t, func() {
		config := DefaultConfig()
		config.Centers["right"] = FullTicks + 1
		So(config.Validate(), ShouldNotBeNil)

		config = DefaultConfig()
		config.Centers["middle"] = 2048
		So(config.Validate(), ShouldNotBeNil)

		config = DefaultConfig()
		config.DefaultVelocity = 150
		So(config.Validate(), ShouldNotBeNil)
	})
}
