package capture

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	src := imaging.New(40, 20, color.NRGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, src, imaging.PNG))

	img, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrNoFrame)

	_, err = Decode([]byte("not an image"))
	assert.Error(t, err)
}

func TestEncodeJPEG(t *testing.T) {
	src := imaging.New(400, 200, color.NRGBA{G: 200, A: 255})

	encoded, scale, err := EncodeJPEG(src, 100, 85)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, scale, 1e-9)

	data, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())

	_, scale, err = EncodeJPEG(src, 0, 85)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, scale, 1e-9)
}
