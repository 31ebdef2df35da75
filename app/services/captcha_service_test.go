package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateCaptcha(t *testing.T) {
	svc, err := NewCaptchaServiceRotate(time.Minute, 5, 220)
	require.NoError(t, err)

	ctx := context.Background()
	challenge, err := svc.GenerateRotate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.ID)
	assert.NotEmpty(t, challenge.MasterImageBase64)
	assert.NotEmpty(t, challenge.ThumbImageBase64)

	impl := svc.(*rotateCaptchaService)
	// the user rotates the thumb back to upright
	answer := 360 - impl.challenges[challenge.ID].angle

	assert.True(t, svc.VerifyRotate(ctx, challenge.ID, float64(answer)))
	assert.False(t, svc.VerifyRotate(ctx, challenge.ID, float64(answer)), "challenge is single use")
	assert.False(t, svc.VerifyRotate(ctx, "unknown", 0))

	challenge, err = svc.GenerateRotate(ctx)
	require.NoError(t, err)
	offBy90 := 360 - impl.challenges[challenge.ID].angle + 90
	assert.False(t, svc.VerifyRotate(ctx, challenge.ID, float64(offBy90)))
}

func TestRotateCaptcha_Expired(t *testing.T) {
	svc, err := NewCaptchaServiceRotate(time.Millisecond, 5, 220)
	require.NoError(t, err)

	ctx := context.Background()
	challenge, err := svc.GenerateRotate(ctx)
	require.NoError(t, err)

	answer := 360 - svc.(*rotateCaptchaService).challenges[challenge.ID].angle
	time.Sleep(5 * time.Millisecond)
	assert.False(t, svc.VerifyRotate(ctx, challenge.ID, float64(answer)))
}
