package SIREN

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/ghodss/yaml"

	"github.com/notargets/gopinn/InputParameters"
	"github.com/notargets/gopinn/utils"
)

// Checkpoint is the serialized form of a trained network
type Checkpoint struct {
	Depth        int       `json:"Depth"`
	Width        int       `json:"Width"`
	Omega0First  float64   `json:"Omega0First"`
	Omega0Hidden float64   `json:"Omega0Hidden"`
	InputScale   []float64 `json:"InputScale"`
	Seed         uint64    `json:"Seed"`
	Params       []float64 `json:"Params"`
}

func (nn *Network) Checkpoint() (ck *Checkpoint) {
	ck = &Checkpoint{
		Depth:        nn.Cfg.Depth,
		Width:        nn.Cfg.Width,
		Omega0First:  nn.Cfg.Omega0First,
		Omega0Hidden: nn.Cfg.Omega0Hidden,
		InputScale:   []float64{nn.Cfg.InputScale[0], nn.Cfg.InputScale[1]},
		Seed:         nn.Cfg.Seed,
		Params:       nn.CopyParams(),
	}
	return
}

func (nn *Network) WriteCheckpoint(fileName string) (err error) {
	var (
		data []byte
	)
	if utils.IsNan(nn.params) {
		return fmt.Errorf("refusing to write NaN parameters to %s", fileName)
	}
	if data, err = yaml.Marshal(nn.Checkpoint()); err != nil {
		return
	}
	return os.WriteFile(fileName, data, 0644)
}

func NewNetworkFromCheckpoint(data []byte) (nn *Network, err error) {
	var (
		ck Checkpoint
	)
	if err = yaml.Unmarshal(data, &ck); err != nil {
		return
	}
	if ck.Depth < 1 || ck.Width < 1 || len(ck.InputScale) != 2 {
		err = fmt.Errorf("malformed checkpoint, depth %d, width %d, %d input scales",
			ck.Depth, ck.Width, len(ck.InputScale))
		return
	}
	nn = NewNetwork(Config{
		Depth:        ck.Depth,
		Width:        ck.Width,
		Omega0First:  ck.Omega0First,
		Omega0Hidden: ck.Omega0Hidden,
		InputScale:   [2]float64{ck.InputScale[0], ck.InputScale[1]},
		Seed:         ck.Seed,
	})
	if len(ck.Params) != nn.NumParams() {
		err = fmt.Errorf("checkpoint holds %d parameters, network of depth %d width %d needs %d",
			len(ck.Params), ck.Depth, ck.Width, nn.NumParams())
		nn = nil
		return
	}
	nn.SetParams(ck.Params)
	return
}

/*
	CheckConfig compares the network with the one the input parameters
	describe and returns a ConfigurationError for every differing layer size,
	frequency or input scaling. The seed only affects initialization and is
	not compared.
*/
func (nn *Network) CheckConfig(ip *InputParameters.InputParametersHelmholtz) error {
	var (
		errs []error
		have = nn.Cfg
		want = NewConfig(ip)
		add  = func(param string, hv, wv interface{}) {
			errs = append(errs, &InputParameters.ConfigurationError{
				Parameter: param,
				Reason:    fmt.Sprintf("checkpoint has %v, input deck implies %v", hv, wv),
			})
		}
		differ = func(a, b float64) bool {
			return math.Abs(a-b) > 1.e-12*math.Max(math.Abs(a), math.Abs(b))
		}
	)
	if have.Depth != want.Depth {
		add("NetworkDepth", have.Depth, want.Depth)
	}
	if have.Width != want.Width {
		add("NetworkWidth", have.Width, want.Width)
	}
	if differ(have.Omega0First, want.Omega0First) {
		add("Omega0First", have.Omega0First, want.Omega0First)
	}
	if differ(have.Omega0Hidden, want.Omega0Hidden) {
		add("Omega0Hidden", have.Omega0Hidden, want.Omega0Hidden)
	}
	if differ(have.InputScale[0], want.InputScale[0]) || differ(have.InputScale[1], want.InputScale[1]) {
		add("DomainExtent", []float64{1 / have.InputScale[0], 1 / have.InputScale[1]}, ip.DomainExtent)
	}
	return errors.Join(errs...)
}

func ReadCheckpoint(fileName string) (nn *Network, err error) {
	var (
		data []byte
	)
	if data, err = os.ReadFile(fileName); err != nil {
		return
	}
	return NewNetworkFromCheckpoint(data)
}
