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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gopinn/SIREN"
	"github.com/notargets/gopinn/model_problems/Helmholtz2D"
)

// GridCmd represents the grid command
var GridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Sample a trained network on a uniform grid",
	Long: `
Reads a checkpoint written by train and evaluates the field, permittivity,
source and residual magnitude on a uniform grid over the whole domain.

gopinn grid -I deck.yaml --restart net.yaml --grid field.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		mh := &ModelHelmholtz{
			ICFile:      viper.GetString("grid.inputConditionsFile"),
			RestartFile: viper.GetString("grid.restart"),
			GridFile:    viper.GetString("grid.grid"),
			Nx:          viper.GetInt("grid.nx"),
			Ny:          viper.GetInt("grid.ny"),
			ProcLimit:   viper.GetInt("grid.procs"),
		}
		if err := RunGrid(mh); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(GridCmd)
	GridCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters")
	GridCmd.Flags().StringP("restart", "r", "", "checkpoint file of the trained network")
	GridCmd.Flags().StringP("grid", "g", "field.yaml", "YAML file to write the sampled field")
	GridCmd.Flags().Int("nx", 101, "number of grid points in x")
	GridCmd.Flags().Int("ny", 101, "number of grid points in y")
	GridCmd.Flags().IntP("procs", "p", 0, "maximum number of go routines, 0 uses every CPU")
	for _, name := range []string{"inputConditionsFile", "restart", "grid", "nx", "ny", "procs"} {
		if err := viper.BindPFlag("grid."+name, GridCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func RunGrid(mh *ModelHelmholtz) (err error) {
	var (
		net *SIREN.Network
	)
	if len(mh.RestartFile) == 0 {
		err = fmt.Errorf("must supply a checkpoint file (-r, --restart)")
		return
	}
	if mh.Nx < 1 || mh.Ny < 1 {
		err = fmt.Errorf("grid dimensions must be positive, have [%d x %d]", mh.Nx, mh.Ny)
		return
	}
	ip, err := processInput(mh.ICFile)
	if err != nil {
		return
	}
	if net, err = SIREN.ReadCheckpoint(mh.RestartFile); err != nil {
		return
	}
	if err = net.CheckConfig(ip); err != nil {
		return
	}
	re := Helmholtz2D.NewResidualEngine(ip, net, mh.ProcLimit)
	gf := re.Grid(mh.Nx, mh.Ny, true)
	gf.Title = ip.Title
	if err = gf.WriteYAML(mh.GridFile); err != nil {
		return
	}
	fmt.Printf("Wrote [%d x %d] grid to [%s]\n", mh.Nx, mh.Ny, mh.GridFile)
	return
}
