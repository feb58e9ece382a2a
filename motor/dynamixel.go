package motor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Control table addresses (RAM area) for the XM430-W210-R.
const (
	addrTorqueEnable        = 64
	addrOperatingMode       = 11
	addrGoalPosition        = 116
	addrPresentPosition     = 132
	addrProfileAcceleration = 108
	addrProfileVelocity     = 112
	addrPresentCurrent      = 126
	addrFirmwareVersion     = 6
)

// Current-based position control.
const opModeCurrentPosition = 5

// XM430-W210-R conversion constants.
const (
	currentConversion = 2.69 // 1 raw unit = 2.69 mA
	torqueConstant    = 1.30 // Nm per Amp
)

// Protocol 2.0 instructions.
const (
	instRead  = 0x02
	instWrite = 0x03
)

const defaultProfileAcceleration = 50

var errShortResponse = errors.New("short or malformed status packet")

// DynamixelDriver speaks Dynamixel Protocol 2.0 over a USB serial adapter.
// Commands are serialized on a single mutex; the servo answers every
// instruction with a status packet, so each exchange is a blocking
// write-then-read.
type DynamixelDriver struct {
	port *serial.Port
	id   uint8
	lock sync.Mutex
}

func NewDynamixelDriver(cfg SerialConfig) (d *DynamixelDriver, err error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: time.Second / 2,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open servo port %s: %v", cfg.Port, err)
	}

	d = &DynamixelDriver{
		port: port,
		id:   uint8(cfg.ID),
	}

	// Operating mode is only writable while torque is off.
	if err = d.write1(addrTorqueEnable, 0); err != nil {
		return
	}
	if err = d.write1(addrOperatingMode, opModeCurrentPosition); err != nil {
		return
	}
	if err = d.write4(addrProfileAcceleration, defaultProfileAcceleration); err != nil {
		return
	}

	return
}

func (d *DynamixelDriver) Goto(tick, velocityPercent int) error {
	if err := d.write4(addrProfileVelocity, uint32(velocityPercent)); err != nil {
		return err
	}
	return d.write4(addrGoalPosition, uint32(tick))
}

func (d *DynamixelDriver) SetTorque(enabled bool) error {
	var val byte
	if enabled {
		val = 1
	}
	return d.write1(addrTorqueEnable, val)
}

func (d *DynamixelDriver) ReadPosition() (int, error) {
	raw, err := d.read(addrPresentPosition, 4)
	if err != nil {
		return 0, err
	}
	return int(uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24), nil
}

func (d *DynamixelDriver) ReadLoad() (float64, error) {
	raw, err := d.read(addrPresentCurrent, 2)
	if err != nil {
		return 0, err
	}

	current := int(uint16(raw[0]) | uint16(raw[1])<<8)
	if current > 32767 {
		current -= 65536
	}

	amps := float64(current) * currentConversion / 1000.0
	return amps * torqueConstant, nil
}

func (d *DynamixelDriver) Firmware() (string, error) {
	raw, err := d.read(addrFirmwareVersion, 1)
	if err != nil {
		return "", err
	}
	// the servo reports a single firmware revision byte
	return fmt.Sprintf("2.0.%d", raw[0]), nil
}

func (d *DynamixelDriver) Close() error {
	// leave the orthotic free to rotate when the service goes away
	d.write1(addrTorqueEnable, 0)
	return d.port.Close()
}

func (d *DynamixelDriver) write1(addr uint16, val byte) error {
	_, err := d.transact(instWrite, []byte{byte(addr), byte(addr >> 8), val})
	return err
}

func (d *DynamixelDriver) write4(addr uint16, val uint32) error {
	_, err := d.transact(instWrite, []byte{
		byte(addr), byte(addr >> 8),
		byte(val), byte(val >> 8), byte(val >> 16), byte(val >> 24),
	})
	return err
}

func (d *DynamixelDriver) read(addr uint16, length uint16) ([]byte, error) {
	return d.transact(instRead, []byte{
		byte(addr), byte(addr >> 8),
		byte(length), byte(length >> 8),
	})
}

// transact frames an instruction packet, sends it and reads back the status
// packet's parameter bytes.
func (d *DynamixelDriver) transact(instruction byte, params []byte) ([]byte, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	pktLen := uint16(len(params) + 3) // instruction + crc16
	pkt := make([]byte, 0, len(params)+10)
	pkt = append(pkt, 0xFF, 0xFF, 0xFD, 0x00, d.id, byte(pktLen), byte(pktLen>>8), instruction)
	pkt = append(pkt, params...)
	crc := updateCRC(0, pkt)
	pkt = append(pkt, byte(crc), byte(crc>>8))

	if _, err := d.port.Write(pkt); err != nil {
		return nil, err
	}

	return d.readStatus()
}

func (d *DynamixelDriver) readStatus() ([]byte, error) {
	header := make([]byte, 7)
	if err := d.readFull(header); err != nil {
		return nil, err
	}
	if header[0] != 0xFF || header[1] != 0xFF || header[2] != 0xFD {
		return nil, errShortResponse
	}

	bodyLen := int(header[5]) | int(header[6])<<8
	if bodyLen < 4 {
		return nil, errShortResponse
	}

	body := make([]byte, bodyLen)
	if err := d.readFull(body); err != nil {
		return nil, err
	}

	expected := updateCRC(0, append(header, body[:bodyLen-2]...))
	got := uint16(body[bodyLen-2]) | uint16(body[bodyLen-1])<<8
	if expected != got {
		return nil, fmt.Errorf("status packet crc mismatch: calculated 0x%04X recieved 0x%04X", expected, got)
	}

	if hwErr := body[1]; hwErr != 0 {
		return nil, fmt.Errorf("servo reported hardware error 0x%02X", hwErr)
	}

	// body: instruction (0x55), error, params..., crc16
	return body[2 : bodyLen-2], nil
}

func (d *DynamixelDriver) readFull(buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := d.port.Read(buf[read:])
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.New("timed out waiting for servo response")
		}
		read += n
	}
	return nil
}

// updateCRC implements the Protocol 2.0 checksum (CRC-16 poly 0x8005,
// init 0, MSB first).
func updateCRC(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x8005
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
