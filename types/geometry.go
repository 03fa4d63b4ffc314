package types

import (
	"fmt"
	"sort"
	"strings"
)

type GeometryMode uint8

const (
	GEOM_None GeometryMode = iota
	GEOM_Circle
	GEOM_Square
	GEOM_Topography
	GEOM_Waveguide
)

var GeometryNameMap = map[string]GeometryMode{
	"none":       GEOM_None,
	"vacuum":     GEOM_None,
	"circle":     GEOM_Circle,
	"disk":       GEOM_Circle,
	"square":     GEOM_Square,
	"box":        GEOM_Square,
	"topography": GEOM_Topography,
	"waveguide":  GEOM_Waveguide,
}

var geometryPrintNames = []string{
	"None (homogeneous background)",
	"Circle inclusion",
	"Square inclusion",
	"Sinusoidal topography",
	"Rectangular waveguide core",
}

func NewGeometryMode(label string) (gm GeometryMode, err error) {
	var (
		ok bool
	)
	if gm, ok = GeometryNameMap[strings.ToLower(strings.TrimSpace(label))]; !ok {
		names := make([]string, 0, len(GeometryNameMap))
		for k := range GeometryNameMap {
			names = append(names, k)
		}
		sort.Strings(names)
		err = fmt.Errorf("unknown geometry mode [%s], must be one of %v", label, names)
	}
	return
}

func (gm GeometryMode) Print() string {
	if int(gm) >= len(geometryPrintNames) {
		return "Unknown"
	}
	return geometryPrintNames[gm]
}
