package InputParameters

import (
	"fmt"
	"math"
	"time"

	"github.com/ghodss/yaml"

	"github.com/notargets/gopinn/types"
)

// Parameters obtained from the YAML input file. Fields absent from the file keep
// the values set by NewInputParameters.
type InputParametersHelmholtz struct {
	Title string `json:"Title"`
	// Geometry / medium
	GeometryMode        string    `json:"GeometryMode"`   // circle | square | topography | waveguide | none
	DomainExtent        []float64 `json:"DomainExtent"`   // Half widths [Lx, Ly], domain is [-Lx,Lx]x[-Ly,Ly]
	GeometryCenter      []float64 `json:"GeometryCenter"` // Center of circle / square / waveguide core
	Radius              float64   `json:"Radius"`
	Side                float64   `json:"Side"`
	Width               float64   `json:"Width"`
	Thickness           float64   `json:"Thickness"`
	TopographyAmplitude float64   `json:"TopographyAmplitude"`
	TopographyPeriod    float64   `json:"TopographyPeriod"`
	TopographyOffset    float64   `json:"TopographyOffset"`
	InterfaceWidth      float64   `json:"InterfaceWidth"` // 0 is a hard step in permittivity
	EpsilonBackground   float64   `json:"EpsilonBackground"`
	EpsilonInclusion    float64   `json:"EpsilonInclusion"`
	NBackground         float64   `json:"NBackground"` // Refractive index, overrides EpsilonBackground when > 0
	NInclusion          float64   `json:"NInclusion"`  // Refractive index, overrides EpsilonInclusion when > 0
	// Source
	SourceCenter    []float64 `json:"SourceCenter"`
	SourceWidth     float64   `json:"SourceWidth"`
	SourceAmplitude float64   `json:"SourceAmplitude"`
	// Frequency
	AngularFrequency float64 `json:"AngularFrequency"`
	Wavelength       float64 `json:"Wavelength"` // Overrides AngularFrequency with 2*Pi/Wavelength when > 0
	// Absorbing layer
	PMLWidth      float64 `json:"PMLWidth"`
	PMLMaxDamping float64 `json:"PMLMaxDamping"` // Magnitude of the stretching factor at the outer edge
	PMLOrder      int     `json:"PMLOrder"`
	// Network
	NetworkDepth int     `json:"NetworkDepth"` // Number of sinusoidal hidden layers
	NetworkWidth int     `json:"NetworkWidth"`
	Omega0First  float64 `json:"Omega0First"`
	Omega0Hidden float64 `json:"Omega0Hidden"`
	// Training
	LearningRate         float64 `json:"LearningRate"`
	LRDecay              float64 `json:"LRDecay"` // Multiplier applied to the learning rate every iteration
	GradClip             float64 `json:"GradClip"`
	MaxIterations        int     `json:"MaxIterations"`
	MaxDuration          string  `json:"MaxDuration"`
	ConvergenceThreshold float64 `json:"ConvergenceThreshold"`
	ConvergenceWindow    int     `json:"ConvergenceWindow"`
	PlateauWindow        int     `json:"PlateauWindow"`
	PlateauTolerance     float64 `json:"PlateauTolerance"`
	DivergenceBound      float64 `json:"DivergenceBound"`
	BatchSize            int     `json:"BatchSize"`
	BoundaryBatchSize    int     `json:"BoundaryBatchSize"`
	BoundaryWeight       float64 `json:"BoundaryWeight"`
	ResampleEvery        int     `json:"ResampleEvery"` // 0 keeps the first batch for the whole run
	SourceSampleFraction float64 `json:"SourceSampleFraction"`
	LBFGSIterations      int     `json:"LBFGSIterations"`
	Seed                 uint64  `json:"Seed"`
	LogFrequency         int     `json:"LogFrequency"`
}

func NewInputParameters() (ip *InputParametersHelmholtz) {
	ip = &InputParametersHelmholtz{
		Title:                "Helmholtz 2D",
		GeometryMode:         "circle",
		DomainExtent:         []float64{1, 1},
		GeometryCenter:       []float64{0, 0},
		Radius:               0.25,
		Side:                 0.5,
		Width:                0.45,
		Thickness:            0.22,
		TopographyAmplitude:  0.1,
		TopographyPeriod:     1.,
		InterfaceWidth:       0.02,
		EpsilonBackground:    1.,
		EpsilonInclusion:     2.,
		SourceCenter:         []float64{0, 0},
		SourceWidth:          0.05,
		SourceAmplitude:      1.,
		AngularFrequency:     1.,
		PMLWidth:             0.2,
		PMLMaxDamping:        5.,
		PMLOrder:             2,
		NetworkDepth:         3,
		NetworkWidth:         32,
		Omega0First:          30.,
		Omega0Hidden:         30.,
		LearningRate:         1.e-3,
		LRDecay:              1.,
		MaxIterations:        2000,
		ConvergenceThreshold: 1.e-5,
		ConvergenceWindow:    20,
		PlateauTolerance:     1.e-3,
		DivergenceBound:      1.e12,
		BatchSize:            1024,
		ResampleEvery:        1,
		Seed:                 1,
		LogFrequency:         100,
	}
	return
}

func (ip *InputParametersHelmholtz) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *InputParametersHelmholtz) Omega() float64 {
	if ip.Wavelength > 0 {
		return 2 * math.Pi / ip.Wavelength
	}
	return ip.AngularFrequency
}

func (ip *InputParametersHelmholtz) EpsBackground() float64 {
	if ip.NBackground > 0 {
		return ip.NBackground * ip.NBackground
	}
	return ip.EpsilonBackground
}

func (ip *InputParametersHelmholtz) EpsInclusion() float64 {
	if ip.NInclusion > 0 {
		return ip.NInclusion * ip.NInclusion
	}
	return ip.EpsilonInclusion
}

func (ip *InputParametersHelmholtz) Geometry() (gm types.GeometryMode) {
	gm, _ = types.NewGeometryMode(ip.GeometryMode)
	return
}

// Duration returns the wall clock budget, zero when unlimited
func (ip *InputParametersHelmholtz) Duration() (d time.Duration) {
	if len(ip.MaxDuration) == 0 {
		return
	}
	d, _ = time.ParseDuration(ip.MaxDuration)
	return
}

func (ip *InputParametersHelmholtz) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t\t= Geometry\n", ip.Geometry().Print())
	fmt.Printf("[%8.5f,%8.5f]\t= Domain Half Extent\n", ip.DomainExtent[0], ip.DomainExtent[1])
	switch ip.Geometry() {
	case types.GEOM_Circle:
		fmt.Printf("%8.5f\t\t= Radius\n", ip.Radius)
	case types.GEOM_Square:
		fmt.Printf("%8.5f\t\t= Side\n", ip.Side)
	case types.GEOM_Waveguide:
		fmt.Printf("%8.5f x %8.5f\t= Width x Thickness\n", ip.Width, ip.Thickness)
	case types.GEOM_Topography:
		fmt.Printf("%8.5f, %8.5f, %8.5f\t= Topography Amplitude, Period, Offset\n",
			ip.TopographyAmplitude, ip.TopographyPeriod, ip.TopographyOffset)
	}
	fmt.Printf("%8.5f\t\t= Interface Smoothing Width\n", ip.InterfaceWidth)
	fmt.Printf("%8.5f, %8.5f\t= Epsilon Background, Inclusion\n", ip.EpsBackground(), ip.EpsInclusion())
	fmt.Printf("[%8.5f,%8.5f]\t= Source Center\n", ip.SourceCenter[0], ip.SourceCenter[1])
	fmt.Printf("%8.5f, %8.5f\t= Source Width, Amplitude\n", ip.SourceWidth, ip.SourceAmplitude)
	fmt.Printf("%8.5f\t\t= Angular Frequency\n", ip.Omega())
	fmt.Printf("%8.5f, %8.5f, %d\t= PML Width, Max Damping, Order\n", ip.PMLWidth, ip.PMLMaxDamping, ip.PMLOrder)
	fmt.Printf("[%d x %d]\t\t\t= Network Depth x Width\n", ip.NetworkDepth, ip.NetworkWidth)
	fmt.Printf("%8.5f, %8.5f\t= Omega0 First, Hidden\n", ip.Omega0First, ip.Omega0Hidden)
	fmt.Printf("%8.5f\t\t= Learning Rate\n", ip.LearningRate)
	fmt.Printf("[%d]\t\t\t\t= Max Iterations\n", ip.MaxIterations)
	fmt.Printf("%8.2e\t\t= Convergence Threshold\n", ip.ConvergenceThreshold)
	fmt.Printf("[%d, %d]\t\t\t= Batch Size, Boundary Batch Size\n", ip.BatchSize, ip.BoundaryBatchSize)
	fmt.Printf("%8.5f\t\t= Boundary Weight\n", ip.BoundaryWeight)
}
