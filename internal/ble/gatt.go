// internal/ble/gatt.go
//
// Logical GATT surface of the controller service.
// One primary service with two characteristics:
//   - notify (read + notify): decimal text of the current counter value.
//   - write (write + write-without-response): gesture text sent by the controller.
//
// The UUIDs match the ones the wrist controller scans and writes for.

package ble

import (
	"time"

	"github.com/google/uuid"
)

var (
	ServiceUUID              = uuid.MustParse("0000180d-0000-1000-8000-00805f9b34fb")
	NotifyCharacteristicUUID = uuid.MustParse("00002a37-0000-1000-8000-00805f9b34fb")
	WriteCharacteristicUUID  = uuid.MustParse("00002a38-0000-1000-8000-00805f9b34fb")
)

// Properties is the GATT characteristic property bit set.
type Properties uint8

const (
	PropRead            Properties = 0x02
	PropWriteNoResponse Properties = 0x04
	PropWrite           Properties = 0x08
	PropNotify          Properties = 0x10
)

// Has reports whether all bits of p are set.
func (ps Properties) Has(p Properties) bool { return ps&p == p }

// Permissions is the attribute permission bit set.
type Permissions uint8

const (
	PermRead  Permissions = 0x01
	PermWrite Permissions = 0x10
)

// Status is an ATT response status code.
type Status int

const (
	StatusSuccess             Status = 0x00
	StatusReadNotPermitted    Status = 0x02
	StatusWriteNotPermitted   Status = 0x03
	StatusRequestNotSupported Status = 0x06
)

// Characteristic describes one attribute of a service.
type Characteristic struct {
	UUID        uuid.UUID
	Properties  Properties
	Permissions Permissions
}

// Service is a primary GATT service and its characteristics.
type Service struct {
	UUID            uuid.UUID
	Characteristics []Characteristic
}

// Characteristic looks up a characteristic by id.
func (s Service) Characteristic(id uuid.UUID) (Characteristic, bool) {
	for _, c := range s.Characteristics {
		if c.UUID == id {
			return c, true
		}
	}
	return Characteristic{}, false
}

// ControlService returns the service registered by a session.
func ControlService() Service {
	return Service{
		UUID: ServiceUUID,
		Characteristics: []Characteristic{
			{UUID: NotifyCharacteristicUUID, Properties: PropRead | PropNotify, Permissions: PermRead},
			{UUID: WriteCharacteristicUUID, Properties: PropWrite | PropWriteNoResponse, Permissions: PermWrite},
		},
	}
}

// AdvertiseMode trades discovery latency for power.
type AdvertiseMode int

const (
	AdvertiseLowPower AdvertiseMode = iota
	AdvertiseBalanced
	AdvertiseLowLatency
)

// TxPower is the requested advertising transmit power.
type TxPower int

const (
	TxPowerUltraLow TxPower = iota
	TxPowerLow
	TxPowerMedium
	TxPowerHigh
)

// AdvertiseSettings are best-effort hints to the radio. A zero Timeout means
// advertise until stopped.
type AdvertiseSettings struct {
	Mode        AdvertiseMode
	TxPower     TxPower
	Connectable bool
	Timeout     time.Duration
}

// AdvertiseData is the advertisement payload.
type AdvertiseData struct {
	DeviceName        string
	IncludeDeviceName bool
	ServiceUUIDs      []uuid.UUID
}
