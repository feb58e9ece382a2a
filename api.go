package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/rehagrip/rehagrip/motor"
)

// MotorAPI exposes the controller and preset store over HTTP. The handles
// are passed in explicitly; nothing here reaches for process globals.
type MotorAPI struct {
	Ctrl    *motor.Controller
	Presets *motor.PresetStore
}

func (a *MotorAPI) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/move", a.Move)
	r.Post("/status", a.Status)
	r.Post("/center", a.Center)
	r.Post("/recenter", a.Recenter)
	r.Post("/get_range", a.GetRange)
	r.Post("/hand", a.SetHand)
	r.Post("/lock", a.SetLock)
	r.Post("/torque", a.SetTorque)
	r.Post("/emergency", a.SetEmergency)

	r.Get("/presets", a.GetPresets)
	r.Post("/presets", a.SavePresets)
	r.Post("/presets/reload", a.ReloadPresets)

	return r
}

//---
// Payloads
//---

type MovePayload struct {
	Position float64 `json:"position"`
	Velocity *int    `json:"velocity"`
	Hand     *string `json:"hand"`
}

func (p *MovePayload) Bind(r *http.Request) error {
	if p.Hand != nil {
		if _, err := motor.ParseHand(*p.Hand); err != nil {
			return err
		}
	}
	return nil
}

type HandPayload struct {
	Hand string `json:"hand"`
}

func (p *HandPayload) Bind(r *http.Request) error {
	_, err := motor.ParseHand(p.Hand)
	return err
}

type LockPayload struct {
	Locked bool `json:"locked"`
}

func (p *LockPayload) Bind(r *http.Request) error { return nil }

type TorquePayload struct {
	Torque bool `json:"torque"`
}

func (p *TorquePayload) Bind(r *http.Request) error { return nil }

type EmergencyPayload struct {
	Stop bool `json:"stop"`
}

func (p *EmergencyPayload) Bind(r *http.Request) error { return nil }

type PresetsPayload struct {
	Presets []motor.Preset `json:"presets"`
}

func (p *PresetsPayload) Bind(r *http.Request) error {
	if p.Presets == nil {
		return errors.New("presets list is required")
	}
	return nil
}

//---
// Responses
//---

type MoveResponse struct {
	OK               bool    `json:"ok"`
	Position         float64 `json:"position"`
	PositionTick     int     `json:"position_tick"`
	TargetTick       int     `json:"target_tick"`
	RequestedDegrees float64 `json:"requested_degrees"`
}

type StatusResponse struct {
	Changed      bool    `json:"changed"`
	Version      uint64  `json:"version"`
	Position     float64 `json:"position"`
	PositionTick int     `json:"position_tick"`
	TargetTick   int     `json:"target_tick"`
	CenterTick   int     `json:"center_tick"`
	Load         float64 `json:"load"`
	Moving       bool    `json:"moving"`
	Locked       bool    `json:"locked"`
	Torque       bool    `json:"torque"`
	Emergency    bool    `json:"emergency"`
	Hand         string  `json:"hand,omitempty"`
}

func statusResponse(state motor.State, changed bool) StatusResponse {
	if !changed {
		return StatusResponse{Changed: false, Version: state.Version}
	}
	return StatusResponse{
		Changed:      true,
		Version:      state.Version,
		Position:     state.PositionDegrees(),
		PositionTick: state.CurrentTick,
		TargetTick:   state.TargetTick,
		CenterTick:   state.CenterTick,
		Load:         state.LoadEstimate,
		Moving:       state.Moving,
		Locked:       state.Locked,
		Torque:       state.TorqueEnabled,
		Emergency:    state.EmergencyStopped,
		Hand:         string(state.Hand),
	}
}

//---
// Handlers
//---

func (a *MotorAPI) Move(w http.ResponseWriter, r *http.Request) {
	data := &MovePayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	req := motor.MoveRequest{
		Degrees:  data.Position,
		Velocity: data.Velocity,
	}
	if data.Hand != nil {
		hand, _ := motor.ParseHand(*data.Hand)
		req.Hand = &hand
	}

	result, err := a.Ctrl.Move(req)
	if err != nil {
		render.Render(w, r, ErrMotor(err))
		return
	}

	render.JSON(w, r, MoveResponse{
		OK:               true,
		Position:         result.PositionDegrees,
		PositionTick:     result.PositionTick,
		TargetTick:       result.TargetTick,
		RequestedDegrees: result.RequestedDegrees,
	})
}

// Status is side-effect-free. A poller may pass ?since=<version> and will
// get a cheap changed:false answer when nothing moved.
func (a *MotorAPI) Status(w http.ResponseWriter, r *http.Request) {
	var since *uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			render.Render(w, r, ErrInvalidRequest(err))
			return
		}
		since = &v
	}

	state, changed := a.Ctrl.Status(since)
	render.JSON(w, r, statusResponse(state, changed))
}

func (a *MotorAPI) Center(w http.ResponseWriter, r *http.Request) {
	centerTick := a.Ctrl.SetCenter()
	render.JSON(w, r, map[string]interface{}{
		"ok":          true,
		"center_tick": centerTick,
	})
}

func (a *MotorAPI) Recenter(w http.ResponseWriter, r *http.Request) {
	centerTick, rangeDegrees, err := a.Ctrl.Recenter()
	if err != nil {
		render.Render(w, r, ErrMotor(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"ok":                      true,
		"center_tick":             centerTick,
		"available_range_degrees": rangeDegrees,
	})
}

func (a *MotorAPI) GetRange(w http.ResponseWriter, r *http.Request) {
	centerTick, min, max, total := a.Ctrl.Range()
	render.JSON(w, r, map[string]interface{}{
		"center_tick": centerTick,
		"min_degrees": min,
		"max_degrees": max,
		"total_range": total,
	})
}

func (a *MotorAPI) SetHand(w http.ResponseWriter, r *http.Request) {
	data := &HandPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrMotor(err))
		return
	}

	hand, _ := motor.ParseHand(data.Hand)
	centerTick, err := a.Ctrl.SetHand(hand)
	if err != nil {
		render.Render(w, r, ErrMotor(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"ok":          true,
		"hand":        string(hand),
		"center_tick": centerTick,
	})
}

func (a *MotorAPI) SetLock(w http.ResponseWriter, r *http.Request) {
	data := &LockPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	locked := a.Ctrl.SetLock(data.Locked)
	render.JSON(w, r, map[string]interface{}{
		"ok":     true,
		"locked": locked,
	})
}

func (a *MotorAPI) SetTorque(w http.ResponseWriter, r *http.Request) {
	data := &TorquePayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	torque, err := a.Ctrl.SetTorque(data.Torque)
	if err != nil {
		render.Render(w, r, ErrMotor(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"ok":     true,
		"torque": torque,
	})
}

func (a *MotorAPI) SetEmergency(w http.ResponseWriter, r *http.Request) {
	data := &EmergencyPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	emergency, err := a.Ctrl.SetEmergency(data.Stop)
	if err != nil {
		render.Render(w, r, ErrMotor(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"ok":        true,
		"emergency": emergency,
	})
}

func (a *MotorAPI) GetPresets(w http.ResponseWriter, r *http.Request) {
	presets := a.Presets.List()
	render.JSON(w, r, map[string]interface{}{
		"ok":          true,
		"presets":     presets,
		"preset_file": a.Presets.Path(),
		"count":       len(presets),
	})
}

func (a *MotorAPI) SavePresets(w http.ResponseWriter, r *http.Request) {
	data := &PresetsPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	saved, err := a.Presets.Save(data.Presets)
	if err != nil {
		render.Render(w, r, ErrMotor(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"ok":            true,
		"message":       "Presets saved successfully",
		"presets":       saved,
		"saved_to_file": true,
	})
}

func (a *MotorAPI) ReloadPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := a.Presets.Reload()
	if err != nil {
		render.Render(w, r, ErrMotor(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"ok":      true,
		"presets": presets,
		"count":   len(presets),
	})
}
