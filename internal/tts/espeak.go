// Package tts renders text to PCM with espeak-ng.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static short  *pcm_buf;
static size_t  pcm_len;
static size_t  pcm_cap;

static int
pcm_collect(short *wav, int numsamples, espeak_EVENT *events)
{
	(void)events;
	if (!wav || numsamples <= 0)
	{ return 0; }

	if (pcm_len + numsamples > pcm_cap)
	{
		size_t cap = pcm_cap ? pcm_cap : 16384;
		while (cap < pcm_len + numsamples)
		{ cap *= 2; }

		short *grown = realloc(pcm_buf, cap * sizeof(short));
		if (!grown)
		{ return 1; }

		pcm_buf = grown;
		pcm_cap = cap;
	}

	memcpy(pcm_buf + pcm_len, wav, numsamples * sizeof(short));
	pcm_len += numsamples;
	return 0;
}

int
espeak_open(const char *voice, int rate)
{
	int sr = espeak_Initialize(AUDIO_OUTPUT_SYNCHRONOUS, 500, NULL, 0);
	if (sr <= 0)
	{ return -1; }

	espeak_SetSynthCallback(pcm_collect);

	if (voice && espeak_SetVoiceByName(voice) != EE_OK)
	{ return -2; }

	if (rate > 0)
	{ espeak_SetParameter(espeakRATE, rate, 0); }

	return sr;
}

int
espeak_render(const char *text, short **out, size_t *n)
{
	if (!text)
	{ return -1; }

	pcm_len = 0;

	espeak_ERROR rc = espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0,
	                               espeakCHARS_AUTO, NULL, NULL);
	if (rc != EE_OK)
	{ return (int)rc; }

	rc = espeak_Synchronize();
	if (rc != EE_OK)
	{ return (int)rc; }

	*out = pcm_buf;
	*n = pcm_len;
	return 0;
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"hark/internal/audio"
	"hark/pkg/audioconv"
)

// ErrSynthesis marks failures of the speech engine.
var ErrSynthesis = errors.New("synthesis")

// Espeak is process-wide: espeak-ng keeps its state in globals, so create one
// and share it.
type Espeak struct {
	mu         sync.Mutex
	sampleRate int
}

// NewEspeak initializes espeak-ng with a voice name ("en", "en-us", ...) and
// a speaking rate in words per minute (0 keeps the default).
func NewEspeak(voice string, rate int) (*Espeak, error) {
	cvoice := C.CString(voice)
	defer C.free(unsafe.Pointer(cvoice))

	sr := int(C.espeak_open(cvoice, C.int(rate)))
	switch {
	case sr == -2:
		return nil, fmt.Errorf("%w: unknown voice %q", ErrSynthesis, voice)
	case sr <= 0:
		return nil, fmt.Errorf("%w: espeak init failed", ErrSynthesis)
	}

	return &Espeak{sampleRate: sr}, nil
}

func (e *Espeak) SampleRate() int { return e.sampleRate }

// Synthesize renders text at the engine's native sample rate.
func (e *Espeak) Synthesize(ctx context.Context, text string) (audio.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return audio.Buffer{}, err
	}
	if strings.TrimSpace(text) == "" {
		return audio.Buffer{SampleRate: e.sampleRate}, nil
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		out *C.short
		n   C.size_t
	)
	if rc := C.espeak_render(ctext, &out, &n); rc != 0 {
		return audio.Buffer{}, fmt.Errorf("%w: espeak_render failed: %d", ErrSynthesis, int(rc))
	}
	if n == 0 || out == nil {
		return audio.Buffer{SampleRate: e.sampleRate}, nil
	}

	// Int16ToFloat32 copies out of the C buffer, which is reused next call.
	pcm := unsafe.Slice((*int16)(unsafe.Pointer(out)), int(n))
	return audio.Buffer{
		Samples:    audioconv.Int16ToFloat32(pcm),
		SampleRate: e.sampleRate,
	}, nil
}

func (e *Espeak) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	C.espeak_Terminate()
}
