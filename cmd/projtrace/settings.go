package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"projtrace/internal/infostore"
	"projtrace/internal/model"
	"projtrace/internal/projection"
	"projtrace/internal/services"
)

// settingsFile is the on-disk form of one settings update:
//
//	[globals]
//	lambda_sdd = 1500.0
//
//	[boxes.equator]
//	x = [0, 200]
//	y = [40, 60]
//	orientation = "h"
//	method = "fit"
//	peaks = [27.0, 55.0]
//
// A [boxes] table lists every box of the image; boxes missing from it are
// dropped from the cache, and so are the peaks of listed boxes that have no
// peaks key. A file without [boxes] leaves boxes and peaks untouched.
type settingsFile struct {
	Boxes   map[string]boxSpec `toml:"boxes"`
	Globals map[string]float64 `toml:"globals"`
}

type boxSpec struct {
	X           []int     `toml:"x"`
	Y           []int     `toml:"y"`
	Orientation string    `toml:"orientation"`
	Method      string    `toml:"method"`
	Shape       string    `toml:"shape"`
	Peaks       []float64 `toml:"peaks"`
	HullRange   []int     `toml:"hull_range"`
}

func loadSettings(path string) (projection.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return projection.Settings{}, services.Wrap(services.ErrNotFound, "settings", "read", path, err)
	}
	return parseSettings(data)
}

func parseSettings(data []byte) (projection.Settings, error) {
	var file settingsFile
	decoder := toml.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return projection.Settings{}, services.Wrap(services.ErrValidation, "settings", "parse", "", err)
	}

	var s projection.Settings
	s.Globals = file.Globals
	if file.Boxes == nil {
		return s, nil
	}

	s.Boxes = make(map[string]infostore.Box, len(file.Boxes))
	s.Peaks = make(map[string]infostore.PeakSet)
	for name, spec := range file.Boxes {
		box, err := spec.box()
		if err != nil {
			return projection.Settings{}, services.Wrap(services.ErrValidation, "settings", "box", fmt.Sprintf("box %q", name), err)
		}
		s.Boxes[name] = box

		if spec.Peaks != nil {
			shape, err := model.ParseShape(spec.Shape)
			if err != nil {
				return projection.Settings{}, services.Wrap(services.ErrValidation, "settings", "shape", fmt.Sprintf("box %q", name), err)
			}
			s.Peaks[name] = infostore.PeakSet{Offsets: spec.Peaks, Shape: shape}
		}

		if spec.HullRange != nil {
			if len(spec.HullRange) != 2 {
				return projection.Settings{}, services.Wrap(services.ErrValidation, "settings", "hull range",
					fmt.Sprintf("box %q: hull_range needs [start, end]", name), nil)
			}
			if s.HullRanges == nil {
				s.HullRanges = make(map[string]infostore.HullRange)
			}
			s.HullRanges[name] = infostore.HullRange{Start: spec.HullRange[0], End: spec.HullRange[1]}
		}
	}
	return s, nil
}

func (b boxSpec) box() (infostore.Box, error) {
	if len(b.X) != 2 || len(b.Y) != 2 {
		return infostore.Box{}, errors.New("x and y need two coordinates each")
	}
	orientation, err := infostore.ParseOrientation(b.Orientation)
	if err != nil {
		return infostore.Box{}, err
	}
	method, err := infostore.ParseMethod(b.Method)
	if err != nil {
		return infostore.Box{}, err
	}
	return infostore.Box{
		X:           [2]int{b.X[0], b.X[1]},
		Y:           [2]int{b.Y[0], b.Y[1]},
		Orientation: orientation,
		Method:      method,
	}, nil
}
