package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidCanvas = errors.New("invalid canvas dimensions")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Settings holds the tunable physics of a match
type Settings struct {
	BallSpeedX     float64 `json:"ball_speed_x" toml:"ball_speed_x" yaml:"ball_speed_x" validate:"gt=0,lte=50"`
	BallSpeedY     float64 `json:"ball_speed_y" toml:"ball_speed_y" yaml:"ball_speed_y" validate:"gte=0,lte=50"`
	BallRadius     float64 `json:"ball_radius" toml:"ball_radius" yaml:"ball_radius" validate:"gt=0,lte=50"`
	PaddleWidth    float64 `json:"paddle_width" toml:"paddle_width" yaml:"paddle_width" validate:"gt=0,lte=200"`
	PaddleHeight   float64 `json:"paddle_height" toml:"paddle_height" yaml:"paddle_height" validate:"gt=0,lte=1000"`
	PaddleInset    float64 `json:"paddle_inset" toml:"paddle_inset" yaml:"paddle_inset" validate:"gte=0,lte=500"`
	PaddleSpeed    float64 `json:"paddle_speed" toml:"paddle_speed" yaml:"paddle_speed" validate:"gt=0,lte=100"`
	ScoreLimit     int     `json:"score_limit" toml:"score_limit" yaml:"score_limit" validate:"gte=0,lte=1000"`
	TickRate       int     `json:"tick_rate" toml:"tick_rate" yaml:"tick_rate" validate:"gte=1,lte=240"`
	BroadcastEvery int     `json:"broadcast_every" toml:"broadcast_every" yaml:"broadcast_every" validate:"gte=1,lte=60"`
}

// DefaultSettings returns the classic 60 Hz preset.
func DefaultSettings() Settings {
	return Settings{
		BallSpeedX:     4,
		BallSpeedY:     3,
		BallRadius:     8,
		PaddleWidth:    15,
		PaddleHeight:   100,
		PaddleInset:    30,
		PaddleSpeed:    8,
		ScoreLimit:     5,
		TickRate:       60,
		BroadcastEvery: 1,
	}
}

// TickInterval is the wall-clock period of one simulation tick.
func (s Settings) TickInterval() time.Duration {
	if s.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(s.TickRate)
}

// ValidateSettings validates a physics preset for correctness and playability
func ValidateSettings(s *Settings) error {
	if s == nil {
		return fmt.Errorf("settings validation: settings are required")
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("settings validation: %w", err)
	}
	if s.BallRadius*2 >= s.PaddleHeight {
		return fmt.Errorf("settings validation: ball diameter %.1f must be smaller than paddle_height %.1f",
			s.BallRadius*2, s.PaddleHeight)
	}
	return nil
}

// ValidateCanvas checks that a canvas can hold both paddles and the ball.
func ValidateCanvas(width, height float64, s *Settings) error {
	canvas := struct {
		Width  float64 `validate:"gte=100,lte=8192"`
		Height float64 `validate:"gte=100,lte=8192"`
	}{width, height}
	if err := validate.Struct(canvas); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCanvas, err)
	}
	if height < s.PaddleHeight {
		return fmt.Errorf("%w: height %.0f is smaller than paddle_height %.0f", ErrInvalidCanvas, height, s.PaddleHeight)
	}
	if width <= 2*(s.PaddleInset+s.PaddleWidth) {
		return fmt.Errorf("%w: width %.0f leaves no court between the paddles", ErrInvalidCanvas, width)
	}
	return nil
}
