/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gopinn/InputParameters"
	"github.com/notargets/gopinn/SIREN"
	"github.com/notargets/gopinn/model_problems/Helmholtz2D"
)

type ModelHelmholtz struct {
	ICFile         string
	GridFile       string
	Nx, Ny         int
	CheckpointFile string
	RestartFile    string
	HistoryFile    string
	ProcLimit      int
	Profile        string
	Verbose        bool
}

const exampleFile = `
########################################
Title: "Circle inclusion"
GeometryMode: circle # circle, square, topography, waveguide or none
DomainExtent: [1., 1.] # Half widths of the domain
Radius: 0.25
EpsilonBackground: 1.
EpsilonInclusion: 2.
InterfaceWidth: 0.02 # 0 is a hard step
SourceCenter: [0., 0.]
SourceWidth: 0.05
SourceAmplitude: 1.
AngularFrequency: 1.
PMLWidth: 0.2
PMLMaxDamping: 5.
NetworkDepth: 3
NetworkWidth: 32
LearningRate: 0.001
MaxIterations: 2000
ConvergenceThreshold: 1.e-5
BatchSize: 1024
Seed: 1
########################################
`

// TrainCmd represents the train command
var TrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the field network for the configured medium and source",
	Long: `
Trains the SIREN field network by minimizing the Helmholtz residual at random
collocation points, optionally writing a checkpoint, the loss history and the
trained field sampled on a grid.

gopinn train -I deck.yaml --checkpoint net.yaml --history loss.csv --grid field.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		mh := &ModelHelmholtz{
			ICFile:         viper.GetString("train.inputConditionsFile"),
			GridFile:       viper.GetString("train.grid"),
			Nx:             viper.GetInt("train.nx"),
			Ny:             viper.GetInt("train.ny"),
			CheckpointFile: viper.GetString("train.checkpoint"),
			RestartFile:    viper.GetString("train.restart"),
			HistoryFile:    viper.GetString("train.history"),
			ProcLimit:      viper.GetInt("train.procs"),
			Profile:        viper.GetString("train.profile"),
			Verbose:        viper.GetBool("train.verbose"),
		}
		if err := RunTrain(mh); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(TrainCmd)
	TrainCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- GeometryMode\n\t- AngularFrequency")
	TrainCmd.Flags().StringP("grid", "g", "", "YAML file to write the trained field sampled on a grid")
	TrainCmd.Flags().Int("nx", 101, "number of grid points in x for --grid")
	TrainCmd.Flags().Int("ny", 101, "number of grid points in y for --grid")
	TrainCmd.Flags().StringP("checkpoint", "c", "", "YAML file to write the trained network parameters")
	TrainCmd.Flags().StringP("restart", "r", "", "checkpoint file to continue training from")
	TrainCmd.Flags().String("history", "", "CSV file to write the loss history")
	TrainCmd.Flags().IntP("procs", "p", 0, "maximum number of go routines, 0 uses every CPU")
	TrainCmd.Flags().String("profile", "", "write a profile: cpu or mem")
	TrainCmd.Flags().BoolP("verbose", "v", false, "print the input deck and training progress")
	for _, name := range []string{"inputConditionsFile", "grid", "nx", "ny", "checkpoint", "restart",
		"history", "procs", "profile", "verbose"} {
		if err := viper.BindPFlag("train."+name, TrainCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func processInput(ICFile string) (ip *InputParameters.InputParametersHelmholtz, err error) {
	var (
		data []byte
	)
	if len(ICFile) == 0 {
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile), example:%s", exampleFile)
		return
	}
	if data, err = os.ReadFile(ICFile); err != nil {
		return
	}
	ip = InputParameters.NewInputParameters()
	if err = ip.Parse(data); err != nil {
		return
	}
	err = ip.Validate()
	return
}

func startProfile(kind string) (stopper interface{ Stop() }) {
	switch kind {
	case "cpu":
		stopper = profile.Start(profile.CPUProfile, profile.ProfilePath("."))
	case "mem":
		stopper = profile.Start(profile.MemProfile, profile.ProfilePath("."))
	}
	return
}

// RunTrain trains from the input deck and writes the requested outputs. A
// divergence is returned as an error, an exhausted budget is reported only.
func RunTrain(mh *ModelHelmholtz) (err error) {
	var (
		ip  *InputParameters.InputParametersHelmholtz
		tr  *Helmholtz2D.Trainer
		net *SIREN.Network
	)
	if ip, err = processInput(mh.ICFile); err != nil {
		return
	}
	if mh.Verbose {
		ip.Print()
	}
	if stopper := startProfile(mh.Profile); stopper != nil {
		defer stopper.Stop()
	}
	if len(mh.RestartFile) != 0 {
		if net, err = SIREN.ReadCheckpoint(mh.RestartFile); err != nil {
			return
		}
		if mh.Verbose {
			fmt.Printf("Restarting from checkpoint [%s]\n", mh.RestartFile)
		}
		if tr, err = Helmholtz2D.NewTrainerWithNetwork(ip, net, mh.ProcLimit, mh.Verbose); err != nil {
			return
		}
	} else {
		if tr, err = Helmholtz2D.NewTrainer(ip, mh.ProcLimit, mh.Verbose); err != nil {
			return
		}
	}
	rpt := tr.Run()
	if len(mh.CheckpointFile) != 0 {
		if err = tr.Net.WriteCheckpoint(mh.CheckpointFile); err != nil {
			return
		}
	}
	if len(mh.HistoryFile) != 0 {
		if err = tr.WriteHistoryFile(mh.HistoryFile); err != nil {
			return
		}
	}
	if len(mh.GridFile) != 0 {
		if mh.Nx < 1 || mh.Ny < 1 {
			err = fmt.Errorf("grid dimensions must be positive, have [%d x %d]", mh.Nx, mh.Ny)
			return
		}
		gf := tr.Engine.Grid(mh.Nx, mh.Ny, true)
		gf.Title = ip.Title
		if err = gf.WriteYAML(mh.GridFile); err != nil {
			return
		}
	}
	if rpt.Outcome == Helmholtz2D.NumericalDivergence {
		err = rpt.Err
	} else if rpt.Err != nil {
		fmt.Printf("%s\n", rpt.Err.Error())
	}
	return
}
