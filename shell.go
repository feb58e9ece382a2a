package main

import (
	"errors"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/rehagrip/rehagrip/motor"
)

var errMissingArgs = errors.New("missing arguments")

// newShell builds the local development shell, mirroring the API surface
// so the device can be exercised from the console without a frontend.
func newShell(api *MotorAPI) *ishell.Shell {
	shell := ishell.New()
	shell.Println("RehaGrip development shell")
	shell.ShowPrompt(true)

	shell.AddCmd(&ishell.Cmd{
		Name: "createsuperuser",
		Help: "createsuperuser <email> <password>",
		Func: func(c *ishell.Context) {
			c.ShowPrompt(false)
			defer c.ShowPrompt(true)

			var email string
			if len(c.Args) >= 1 {
				email = c.Args[0]
			} else {
				c.Print("Email: ")
				email = c.ReadLine()
			}

			var password string
			if len(c.Args) >= 2 {
				password = c.Args[1]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}

			user := &User{
				Email: email,
				Name:  email,
				Admin: true,
			}
			user.SetPassword([]byte(password))
			if err := ENV.DB.Save(user); err != nil {
				panic(err)
			}

			c.Println("Superuser created")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "move",
		Help: "move <degrees> [velocity]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(errMissingArgs)
				return
			}
			degrees, err := strconv.ParseFloat(c.Args[0], 64)
			if err != nil {
				c.Err(err)
				return
			}

			req := motor.MoveRequest{Degrees: degrees}
			if len(c.Args) >= 2 {
				velocity, err := strconv.Atoi(c.Args[1])
				if err != nil {
					c.Err(err)
					return
				}
				req.Velocity = &velocity
			}

			result, err := api.Ctrl.Move(req)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("Moving to %.1f° (tick %d)\n", result.RequestedDegrees, result.TargetTick)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "Reads the current state of the device",
		Func: func(c *ishell.Context) {
			state, _ := api.Ctrl.Status(nil)
			c.Printf("hand=%s position=%.1f° tick=%d target=%d moving=%v locked=%v torque=%v emergency=%v load=%.2f\n",
				state.Hand, state.PositionDegrees(), state.CurrentTick, state.TargetTick,
				state.Moving, state.Locked, state.TorqueEnabled, state.EmergencyStopped,
				state.LoadEstimate)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "center",
		Help: "Set the current position as the center",
		Func: func(c *ishell.Context) {
			c.Printf("Center reset to tick %d\n", api.Ctrl.SetCenter())
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "hand",
		Help: "hand <left|right>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(errMissingArgs)
				return
			}
			hand, err := motor.ParseHand(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			center, err := api.Ctrl.SetHand(hand)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("Hand %s homed at tick %d\n", hand, center)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "lock",
		Help: "lock <true|false>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(errMissingArgs)
				return
			}
			locked, err := strconv.ParseBool(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("Locked: %v\n", api.Ctrl.SetLock(locked))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "torque",
		Help: "torque <true|false>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(errMissingArgs)
				return
			}
			enabled, err := strconv.ParseBool(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			torque, err := api.Ctrl.SetTorque(enabled)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("Torque: %v\n", torque)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "emergency",
		Help: "emergency <true|false>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(errMissingArgs)
				return
			}
			stop, err := strconv.ParseBool(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			emergency, err := api.Ctrl.SetEmergency(stop)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("Emergency STOP set to %v\n", emergency)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "presets",
		Help: "List the stored presets",
		Func: func(c *ishell.Context) {
			for _, p := range api.Presets.List() {
				c.Printf("%-12s %+.1f°\n", p.Name, p.Pos)
			}
		},
	})

	return shell
}
