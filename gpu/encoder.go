// Package gpu describes the hardware H.264 encoders ffmpeg can use and picks
// one for the current platform.
package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
)

// Kind names a hardware encoder family as accepted on the command line.
type Kind string

const (
	Auto         Kind = "auto"
	VideoToolbox Kind = "videotoolbox"
	NVENC        Kind = "nvenc"
	QSV          Kind = "qsv"
	AMF          Kind = "amf"
)

// Encoder is one hardware encoder and the quality flags used with it.
type Encoder struct {
	Kind   Kind
	Name   string   // human readable
	Codec  string   // ffmpeg -c:v value
	Params []string // extra output flags
}

// Args returns "-c:v <codec>" followed by the encoder's params.
func (e Encoder) Args() []string {
	args := []string{"-c:v", e.Codec}
	return append(args, e.Params...)
}

var encoders = map[Kind]Encoder{
	VideoToolbox: {
		Kind:   VideoToolbox,
		Name:   "VideoToolbox (macOS)",
		Codec:  "h264_videotoolbox",
		Params: []string{"-profile:v", "high", "-level", "4.2"},
	},
	NVENC: {
		Kind:   NVENC,
		Name:   "NVIDIA NVENC",
		Codec:  "h264_nvenc",
		Params: []string{"-preset", "p4", "-tune", "hq", "-profile:v", "high"},
	},
	QSV: {
		Kind:   QSV,
		Name:   "Intel Quick Sync",
		Codec:  "h264_qsv",
		Params: []string{"-preset", "medium", "-profile:v", "high"},
	},
	AMF: {
		Kind:   AMF,
		Name:   "AMD AMF",
		Codec:  "h264_amf",
		Params: []string{"-quality", "balanced", "-profile:v", "high"},
	},
}

// Lookup returns the encoder for kind.
func Lookup(kind Kind) (Encoder, bool) {
	e, ok := encoders[kind]
	if !ok {
		return Encoder{}, false
	}
	e.Params = append([]string(nil), e.Params...)
	return e, true
}

// Kinds returns every accepted --gpu value, "auto" first.
func Kinds() []string {
	out := make([]string, 0, len(encoders)+1)
	for k := range encoders {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return append([]string{string(Auto)}, out...)
}

// ParseKind validates a --gpu value. The empty string means no GPU.
func ParseKind(value string) (Kind, error) {
	v := Kind(strings.ToLower(strings.TrimSpace(value)))
	if v == "" || v == Auto {
		return v, nil
	}
	if _, ok := encoders[v]; ok {
		return v, nil
	}
	return "", fmt.Errorf("unknown GPU encoder %q (valid: %s)", value, strings.Join(Kinds(), ", "))
}

// DetectionOrder lists the encoders worth probing on goos, most preferred
// first.
func DetectionOrder(goos string) []Kind {
	switch goos {
	case "darwin":
		return []Kind{VideoToolbox}
	case "windows":
		return []Kind{NVENC, AMF, QSV}
	default:
		return []Kind{NVENC, QSV}
	}
}

// Tester reports whether ffmpeg can encode with codec.
type Tester interface {
	TestEncoder(ctx context.Context, codec string) bool
}

// Resolve turns a --gpu value into a usable encoder. It returns nil when
// no GPU was requested or none works, in which case callers fall back to
// libx264.
func Resolve(ctx context.Context, kind Kind, tester Tester, logger *slog.Logger) *Encoder {
	return resolve(ctx, kind, tester, logger, runtime.GOOS)
}

func resolve(ctx context.Context, kind Kind, tester Tester, logger *slog.Logger, goos string) *Encoder {
	switch kind {
	case "":
		return nil
	case Auto:
		for _, k := range DetectionOrder(goos) {
			e, _ := Lookup(k)
			if tester.TestEncoder(ctx, e.Codec) {
				logger.Info("auto-detected GPU encoder", "encoder", e.Name)
				return &e
			}
		}
		logger.Warn("no GPU encoder detected, falling back to CPU encoding")
		return nil
	default:
		e, ok := Lookup(kind)
		if !ok {
			logger.Warn("unknown GPU encoder", "gpu", string(kind))
			return nil
		}
		if !tester.TestEncoder(ctx, e.Codec) {
			logger.Warn("GPU encoder not available, falling back to CPU encoding", "encoder", e.Name)
			return nil
		}
		logger.Info("using GPU encoder", "encoder", e.Name)
		return &e
	}
}

// Family classifies an ffmpeg video codec name for codec-specific flags.
// It returns "x264" for libx264 and the encoder kind for hardware codecs,
// or "" when unknown.
func Family(codec string) string {
	switch {
	case strings.Contains(codec, "libx264"):
		return "x264"
	case strings.Contains(codec, "videotoolbox"):
		return string(VideoToolbox)
	case strings.Contains(codec, "nvenc"):
		return string(NVENC)
	case strings.Contains(codec, "qsv"):
		return string(QSV)
	case strings.Contains(codec, "amf"):
		return string(AMF)
	default:
		return ""
	}
}
