package deck

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Reference struct {
	Role       string  // "signal" or "idler"
	Wavelength float64 // um
}

type Sweep struct {
	Min    float64 // degC
	Max    float64 // degC
	Points int
}

// Deck is a parsed input deck. Nil fields were not given and fall back to
// the configuration defaults.
type Deck struct {
	Title     string
	Pump      *float64 // um
	Reference *Reference
	T0        *float64 // degC
	Tref      *float64 // degC
	Sweep     *Sweep
	Query     *float64 // degC
	Options   map[string]string
}

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var (
	valueRe      = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|[TGMKkmunpf])?m?$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Parse reads a deck. The first line is the title. Lines starting with '*'
// are comments, '*' also starts an inline comment, and a leading '+'
// continues the previous statement.
//
//	* ppKTP degenerate source
//	.pump 405n
//	.reference signal 810n
//	.temp 35 tref=25
//	.sweep 20 120 100
//	.solve 60
//	.option decimals=4 method=newton
//	.end
func Parse(input string) (*Deck, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	d := &Deck{Options: make(map[string]string)}

	// Title or comment
	if scanner.Scan() {
		d.Title = strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "*"))
	}

	var currentLine string
	lineNo := 1
	startLine := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if idx := strings.Index(line, "*"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if len(line) == 0 {
			continue
		}

		if strings.HasPrefix(line, "+") {
			if currentLine == "" {
				return nil, fmt.Errorf("line %d: continuation without a statement", lineNo)
			}
			currentLine += " " + strings.TrimSpace(strings.TrimPrefix(line, "+"))
			continue
		}

		if currentLine != "" {
			done, err := parseLine(d, currentLine)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", startLine, err)
			}
			if done {
				return d, nil
			}
		}
		currentLine = line
		startLine = lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading deck: %w", err)
	}

	if currentLine != "" {
		if _, err := parseLine(d, currentLine); err != nil {
			return nil, fmt.Errorf("line %d: %w", startLine, err)
		}
	}

	return d, nil
}

// parseLine reports done=true on .end.
func parseLine(d *Deck, line string) (bool, error) {
	line = whitespaceRe.ReplaceAllString(line, " ")
	if !strings.HasPrefix(line, ".") {
		return false, fmt.Errorf("unexpected statement %q", line)
	}
	return parseDirective(d, strings.Fields(line))
}

func parseDirective(d *Deck, fields []string) (bool, error) {
	switch strings.ToLower(fields[0]) {
	case ".end":
		return true, nil

	case ".pump":
		if len(fields) != 2 {
			return false, fmt.Errorf(".pump needs one wavelength")
		}
		w, err := ParseWavelength(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid pump wavelength: %w", err)
		}
		d.Pump = &w

	case ".reference", ".ref":
		if len(fields) != 3 {
			return false, fmt.Errorf(".reference needs a role and a wavelength")
		}
		role := strings.ToLower(fields[1])
		if role != "signal" && role != "idler" {
			return false, fmt.Errorf("invalid reference role: %s", fields[1])
		}
		w, err := ParseWavelength(fields[2])
		if err != nil {
			return false, fmt.Errorf("invalid reference wavelength: %w", err)
		}
		d.Reference = &Reference{Role: role, Wavelength: w}

	case ".temp":
		if len(fields) < 2 || len(fields) > 3 {
			return false, fmt.Errorf(".temp needs an operating temperature and optional tref=")
		}
		t0, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return false, fmt.Errorf("invalid operating temperature: %w", err)
		}
		d.T0 = &t0
		if len(fields) == 3 {
			key, value, ok := strings.Cut(fields[2], "=")
			if !ok || strings.ToLower(key) != "tref" {
				return false, fmt.Errorf("unknown .temp parameter: %s", fields[2])
			}
			tref, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return false, fmt.Errorf("invalid reference temperature: %w", err)
			}
			d.Tref = &tref
		}

	case ".sweep":
		if len(fields) != 4 {
			return false, fmt.Errorf(".sweep needs tmin, tmax and points")
		}
		var s Sweep
		var err error
		if s.Min, err = strconv.ParseFloat(fields[1], 64); err != nil {
			return false, fmt.Errorf("invalid sweep start: %w", err)
		}
		if s.Max, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return false, fmt.Errorf("invalid sweep stop: %w", err)
		}
		if s.Points, err = strconv.Atoi(fields[3]); err != nil {
			return false, fmt.Errorf("invalid points number: %w", err)
		}
		d.Sweep = &s

	case ".solve":
		if len(fields) != 2 {
			return false, fmt.Errorf(".solve needs one temperature")
		}
		t, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return false, fmt.Errorf("invalid query temperature: %w", err)
		}
		d.Query = &t

	case ".option", ".options":
		for _, f := range fields[1:] {
			key, value, ok := strings.Cut(f, "=")
			if !ok {
				value = "true"
			}
			d.Options[strings.ToLower(key)] = value
		}

	default:
		return false, fmt.Errorf("unsupported directive: %s", fields[0])
	}

	return false, nil
}

// ParseValue parses a number with an optional SI prefix and an optional
// trailing 'm' for metres. 405n -> 4.05e-7, 1.2um -> 1.2e-6.
func ParseValue(val string) (float64, error) {
	num, _, err := parseScaled(val)
	return num, err
}

// ParseWavelength returns micrometres. A bare number is already in um;
// a prefixed value is read as metres: 405n, 405nm, 0.81u all work.
func ParseWavelength(val string) (float64, error) {
	num, prefixed, err := parseScaled(val)
	if err != nil {
		return 0, err
	}
	if prefixed {
		num *= 1e6
	}
	return num, nil
}

func parseScaled(val string) (float64, bool, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, false, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, false, err
	}

	// factor
	if matches[2] != "" {
		num *= unitMap[matches[2]]
		return num, true, nil
	}

	return num, false, nil
}
