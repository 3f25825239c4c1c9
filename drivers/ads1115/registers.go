package ads1115

// ADS1115 register map and config-word fields (datasheet §9.6).
// All registers are 16-bit, transferred big-endian.

const (
	AddressDefault uint16 = 0x48 // ADDR pin to GND
	AddressVDD     uint16 = 0x49
	AddressSDA     uint16 = 0x4A
	AddressSCL     uint16 = 0x4B
)

const (
	regConversion byte = 0x00
	regConfig     byte = 0x01
	regLoThresh   byte = 0x02
	regHiThresh   byte = 0x03
)

// Config register fields.
const (
	cfgOS uint16 = 1 << 15 // write: start single conversion; read: 0 = busy

	cfgMuxShift = 12
	cfgPGAShift = 9
	cfgModeBit  uint16 = 1 << 8 // 1 = single-shot
	cfgDRShift  = 5

	// Comparator disabled, ALERT/RDY pin high-impedance.
	cfgCompDisable uint16 = 0x0003
)

// Mux selects the input pair routed to the converter.
type Mux uint16

const (
	MuxDiff01 Mux = iota // AIN0 - AIN1
	MuxDiff03            // AIN0 - AIN3
	MuxDiff13            // AIN1 - AIN3
	MuxDiff23            // AIN2 - AIN3
	MuxSingle0           // AIN0 - GND
	MuxSingle1
	MuxSingle2
	MuxSingle3
)

// Gain selects the programmable gain amplifier full-scale range.
type Gain uint16

const (
	Gain2_3 Gain = iota // ±6.144 V
	Gain1               // ±4.096 V
	Gain2               // ±2.048 V
	Gain4               // ±1.024 V
	Gain8               // ±0.512 V
	Gain16              // ±0.256 V
)

// FullScaleMicroVolts returns the positive full-scale range of a gain
// setting, for converting raw codes to voltages.
func (g Gain) FullScaleMicroVolts() uint32 {
	switch g {
	case Gain2_3:
		return 6144000
	case Gain1:
		return 4096000
	case Gain2:
		return 2048000
	case Gain4:
		return 1024000
	case Gain8:
		return 512000
	default:
		return 256000
	}
}

// DataRate selects samples per second.
type DataRate uint16

const (
	DR8 DataRate = iota
	DR16
	DR32
	DR64
	DR128 // power-on default
	DR250
	DR475
	DR860
)
