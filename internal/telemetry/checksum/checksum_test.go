package checksum

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_WrapsAt16Bits(t *testing.T) {
	// 0xFFFF + 0x0002 wraps to 0x0001.
	assert.Equal(t, uint16(0x0001), Compute(0xFFFF, []byte{0x02, 0x00}))
	assert.Equal(t, uint16(0xB58C), Compute(NortekSeed, nil))
	assert.Equal(t, uint16(0xB58C+0x01A5), Compute(NortekSeed, []byte{0xA5, 0x01}))
}

func TestCompute_OddTrailingByte(t *testing.T) {
	assert.Equal(t, uint16(0x0203+0x04), Compute(0, []byte{0x03, 0x02, 0x04}))
}

func TestVerify_SealedFrame(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for size := 4; size <= 64; size += 2 {
		frame := make([]byte, size)
		rng.Read(frame)
		Seal(NortekSeed, frame)
		assert.True(t, Verify(NortekSeed, frame), "size %d", size)
	}
}

func TestVerify_SingleBitCorruption(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	frame := make([]byte, 42)
	rng.Read(frame)
	frame[0], frame[1] = 0xA5, 0x01
	Seal(NortekSeed, frame)

	for i := 0; i < len(frame)-2; i++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), frame...)
			corrupted[i] ^= 1 << bit
			assert.False(t, Verify(NortekSeed, corrupted), "byte %d bit %d", i, bit)
		}
	}
}

func TestVerify_TooShort(t *testing.T) {
	assert.False(t, Verify(NortekSeed, []byte{0x01}))
	assert.False(t, Verify(NortekSeed, nil))
}

func TestSeal_TooShortIsNoop(t *testing.T) {
	b := []byte{0x07}
	Seal(NortekSeed, b)
	assert.Equal(t, []byte{0x07}, b)
}
