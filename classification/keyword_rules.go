package classification

import "strings"

// GeneralCategory категория по умолчанию, когда ни одно правило не сработало
const GeneralCategory = "General Components"

// KeywordRule правило: все подстроки должны встретиться в описании
type KeywordRule struct {
	All      []string `yaml:"all" json:"all"`
	Category string   `yaml:"category" json:"category"`
}

// KeywordRules упорядоченный список правил, побеждает первое сработавшее
type KeywordRules []KeywordRule

// DefaultKeywordRules правила для типовых описаний дистрибьюторов
func DefaultKeywordRules() KeywordRules {
	return KeywordRules{
		{All: []string{"CAP", "CER"}, Category: "Ceramic Capacitors"},
		{All: []string{"MLCC"}, Category: "Ceramic Capacitors"},
		{All: []string{"CAP", "ALUM"}, Category: "Aluminum Electrolytic Capacitors"},
		{All: []string{"CAP", "TANT"}, Category: "Tantalum Capacitors"},
		{All: []string{"CAP", "FILM"}, Category: "Film Capacitors"},
		{All: []string{"CAPACITOR"}, Category: "Capacitors"},
		{All: []string{"RES", "SMD"}, Category: "SMD Resistors"},
		{All: []string{"RES", "THICK FILM"}, Category: "SMD Resistors"},
		{All: []string{"RES", "THIN FILM"}, Category: "SMD Resistors"},
		{All: []string{"RES", "CHIP"}, Category: "SMD Resistors"},
		{All: []string{"POTENTIOMETER"}, Category: "Potentiometers"},
		{All: []string{"TRIMMER"}, Category: "Potentiometers"},
		{All: []string{"RESISTOR"}, Category: "Resistors"},
		{All: []string{"FERRITE"}, Category: "Ferrite Beads"},
		{All: []string{"INDUCTOR"}, Category: "Inductors"},
		{All: []string{"LED"}, Category: "LEDs"},
		{All: []string{"TVS"}, Category: "TVS Diodes"},
		{All: []string{"ZENER"}, Category: "Zener Diodes"},
		{All: []string{"DIODE"}, Category: "Diodes"},
		{All: []string{"MOSFET"}, Category: "MOSFETs"},
		{All: []string{"TRANSISTOR"}, Category: "Transistors"},
		{All: []string{"MICROCONTROLLER"}, Category: "Microcontrollers"},
		{All: []string{"MCU"}, Category: "Microcontrollers"},
		{All: []string{"OP AMP"}, Category: "Amplifiers"},
		{All: []string{"OPAMP"}, Category: "Amplifiers"},
		{All: []string{"AMPLIFIER"}, Category: "Amplifiers"},
		{All: []string{"LDO"}, Category: "Voltage Regulators"},
		{All: []string{"REGULATOR"}, Category: "Voltage Regulators"},
		{All: []string{"DC-DC"}, Category: "DC-DC Converters"},
		{All: []string{"CRYSTAL"}, Category: "Crystals & Oscillators"},
		{All: []string{"OSCILLATOR"}, Category: "Crystals & Oscillators"},
		{All: []string{"SENSOR"}, Category: "Sensors"},
		{All: []string{"CONN"}, Category: "Connectors"},
		{All: []string{"HEADER"}, Category: "Connectors"},
		{All: []string{"FUSE"}, Category: "Fuses"},
		{All: []string{"RELAY"}, Category: "Relays"},
		{All: []string{"SWITCH"}, Category: "Switches"},
	}
}

// Match возвращает категорию первого сработавшего правила или GeneralCategory
func (rules KeywordRules) Match(description string) string {
	text := strings.ToUpper(description)
	if strings.TrimSpace(text) == "" {
		return GeneralCategory
	}

	for _, rule := range rules {
		if len(rule.All) == 0 {
			continue
		}
		matched := true
		for _, kw := range rule.All {
			if !strings.Contains(text, strings.ToUpper(kw)) {
				matched = false
				break
			}
		}
		if matched {
			return rule.Category
		}
	}
	return GeneralCategory
}
