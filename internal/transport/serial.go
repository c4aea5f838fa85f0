package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/motion_collector/internal/imu"
)

// Proprietary sentence types written by a tethered sensor board, e.g.
// $PMACC,0.01,-0.02,9.81*hh. The leading P marks a proprietary sentence.
const (
	TypeMotionAccel  = "MACC"
	TypeMotionGyro   = "MGYR"
	TypeMotionMagnet = "MMAG"
)

// MotionSentence is one decoded reading line.
type MotionSentence struct {
	nmea.BaseSentence
	Sensor imu.SensorType
	Triple imu.AxisTriple
}

// NewSentenceParser returns an NMEA parser that understands the motion sentences.
func NewSentenceParser() *nmea.SentenceParser {
	return &nmea.SentenceParser{
		CustomParsers: map[string]nmea.ParserFunc{
			TypeMotionAccel:  motionParser(imu.SensorAccel),
			TypeMotionGyro:   motionParser(imu.SensorGyro),
			TypeMotionMagnet: motionParser(imu.SensorMagnet),
		},
	}
}

func motionParser(t imu.SensorType) nmea.ParserFunc {
	return func(s nmea.BaseSentence) (nmea.Sentence, error) {
		if len(s.Fields) != 3 {
			return nil, fmt.Errorf("%w: %s has %d fields", imu.ErrInvalidPayload, s.Type, len(s.Fields))
		}
		for i, f := range s.Fields {
			if strings.TrimSpace(f) == "" {
				return nil, fmt.Errorf("%w: %s field %d empty", imu.ErrInvalidPayload, s.Type, i)
			}
		}
		p := nmea.NewParser(s)
		m := MotionSentence{
			BaseSentence: s,
			Sensor:       t,
			Triple: imu.AxisTriple{
				X: p.Float64(0, "x"),
				Y: p.Float64(1, "y"),
				Z: p.Float64(2, "z"),
			},
		}
		if err := p.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", imu.ErrInvalidPayload, err)
		}
		return m, nil
	}
}

// ParseLine decodes one serial line into a reading event.
func ParseLine(parser *nmea.SentenceParser, line string, at time.Time) (imu.ReadingEvent, error) {
	sentence, err := parser.Parse(strings.TrimSpace(line))
	if err != nil {
		return imu.ReadingEvent{}, fmt.Errorf("%w: %v", imu.ErrInvalidPayload, err)
	}
	m, ok := sentence.(MotionSentence)
	if !ok {
		return imu.ReadingEvent{}, fmt.Errorf("%w: unexpected sentence %s", imu.ErrInvalidPayload, sentence.DataType())
	}
	return imu.ReadingEvent{Type: m.Sensor, Payload: m.Triple, ReceivedAt: at}, nil
}

// SerialConfig selects the serial device.
type SerialConfig struct {
	Port     string
	BaudRate int
}

// OpenSerial opens the port in raw 8N1 mode.
func OpenSerial(cfg SerialConfig) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              cfg.Port,
		BaudRate:              uint(cfg.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Port, err)
	}
	log.Printf("serial: opened %s at %d baud", cfg.Port, cfg.BaudRate)
	return port, nil
}

// SerialSource reads motion sentences line by line and feeds the session.
type SerialSource struct {
	r      io.ReadCloser
	ing    Ingestor
	parser *nmea.SentenceParser
}

func NewSerialSource(r io.ReadCloser, ing Ingestor) *SerialSource {
	return &SerialSource{r: r, ing: ing, parser: NewSentenceParser()}
}

// Run blocks until the reader fails or ctx is cancelled. End of input is
// treated as a device disconnect.
func (s *SerialSource) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.r.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(s.r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Anything that is not a sentence is line noise.
		if !strings.HasPrefix(line, "$") {
			continue
		}

		ev, err := ParseLine(s.parser, line, time.Now())
		if err != nil {
			log.Printf("serial: dropped line %q: %v", line, err)
			s.ing.Reject()
			continue
		}
		if _, err := s.ing.HandleEvent(ev); err != nil {
			log.Printf("serial: %v", err)
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	err := scanner.Err()
	if err != nil {
		err = fmt.Errorf("serial read: %w", err)
	}
	s.ing.Disconnect()
	return err
}
