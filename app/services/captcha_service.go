package services

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wenlng/go-captcha/v2/rotate"
)

var ErrCaptchaGenerate = errors.New("captcha generation returned no data")

// CaptchaService issues rotate captchas for the login form and checks the answers.
// Challenges live in memory and are consumed by the first verification attempt.
type CaptchaService interface {
	GenerateRotate(ctx context.Context) (*RotateChallenge, error)
	VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool
}

type RotateChallenge struct {
	ID                string
	MasterImageBase64 string
	ThumbImageBase64  string
}

type rotateCaptchaService struct {
	rotator    rotate.Captcha
	ttl        time.Duration
	tolerance  int
	mu         sync.Mutex
	challenges map[string]rotateAnswer
}

type rotateAnswer struct {
	angle     int
	expiresAt time.Time
}

// NewCaptchaServiceRotate builds the rotate captcha. tolerance is the accepted angle error in degrees.
func NewCaptchaServiceRotate(ttl time.Duration, tolerance int, imgSizePx int) (CaptchaService, error) {
	if imgSizePx <= 0 {
		imgSizePx = 220
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	builder := rotate.NewBuilder(rotate.WithImageSquareSize(imgSizePx))
	builder.SetResources(rotate.WithImages(rotateBackgrounds(3, imgSizePx)))

	return &rotateCaptchaService{
		rotator:    builder.Make(),
		ttl:        ttl,
		tolerance:  tolerance,
		challenges: make(map[string]rotateAnswer),
	}, nil
}

func (s *rotateCaptchaService) GenerateRotate(ctx context.Context) (*RotateChallenge, error) {
	captData, err := s.rotator.Generate()
	if err != nil {
		return nil, err
	}
	block := captData.GetData()
	if block == nil {
		return nil, ErrCaptchaGenerate
	}

	master, err := captData.GetMasterImage().ToBase64()
	if err != nil {
		return nil, err
	}
	thumb, err := captData.GetThumbImage().ToBase64()
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := time.Now()

	s.mu.Lock()
	for k, v := range s.challenges {
		if now.After(v.expiresAt) {
			delete(s.challenges, k)
		}
	}
	s.challenges[id] = rotateAnswer{angle: block.Angle, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()

	return &RotateChallenge{
		ID:                id,
		MasterImageBase64: master,
		ThumbImageBase64:  thumb,
	}, nil
}

func (s *rotateCaptchaService) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	s.mu.Lock()
	answer, ok := s.challenges[challengeID]
	delete(s.challenges, challengeID)
	s.mu.Unlock()

	if !ok || time.Now().After(answer.expiresAt) {
		return false
	}
	return rotate.Validate(int(math.Round(userAngle)), answer.angle, s.tolerance)
}

// rotateBackgrounds renders n radial gradients with light noise.
func rotateBackgrounds(n, size int) []image.Image {
	imgs := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		rgba := image.NewRGBA(image.Rect(0, 0, size, size))
		half := float64(size) / 2
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				d := math.Hypot(float64(x)-half, float64(y)-half) / half
				if d > 1 {
					d = 1
				}
				base := uint8(210 - int(140*d))
				noise := uint8(rand.Intn(24))
				rgba.Set(x, y, color.RGBA{R: base + noise/2, G: base - uint8(i*20), B: 255 - base/3, A: 255})
			}
		}
		imgs = append(imgs, rgba)
	}
	return imgs
}
