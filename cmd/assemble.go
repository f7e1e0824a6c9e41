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
	"io"
	"math"
	"os"

	"github.com/notargets/feassembly/InputParameters"
	"github.com/notargets/feassembly/assembly"
	"github.com/notargets/feassembly/element"
	"github.com/notargets/feassembly/mesh"
	"github.com/notargets/feassembly/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

const exampleInput = `
########################################
Title: "Unit square"
QuadratureOrder: 2
Components: 1
Conductivity: 1.
Source: 1.
MeanConstraint: false
IntegrationPolicy: LogAndContinue # or FailFast, AutoIntegrate
Parallel: 4
Regions:
  1:
    Conductivity: 10.
########################################
`

type AssembleRun struct {
	GridFile  string
	ICFile    string
	PrintLoad bool
}

// AssemblyReport summarizes the global systems of one run.
type AssemblyReport struct {
	Cells, Dof    int
	MassNNZ       int
	StiffnessNNZ  int
	Volume        float64 // 1ᵗ·M·1
	StiffnessNorm float64 // l1 norm of the stiffness values
	RowSumMax     float64 // max |K·1|, zero for a consistent stiffness matrix
	Load          []float64
	Constraint    []float64 // Constraint row sums, one per component
}

// AssembleCmd represents the assemble command
var AssembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble mass and stiffness matrices of a P1 field on an SU2 mesh",
	Long: `
Reads an SU2 mesh and a YAML run description, builds the element maps of a P1
field and assembles mass and stiffness matrices and the load vector.

feassembly assemble -F mesh.su2 -I run.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			ar  = &AssembleRun{}
			err error
		)
		if ar.GridFile, err = cmd.Flags().GetString("gridFile"); err != nil {
			return err
		}
		if ar.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return err
		}
		ar.PrintLoad, _ = cmd.Flags().GetBool("load")
		ip, err := processInput(ar, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		ip.Print(cmd.OutOrStdout())
		msh, err := mesh.ReadSU2(ar.GridFile)
		if err != nil {
			return err
		}
		rep, err := Assemble(msh, ip, logger)
		if err != nil {
			return err
		}
		rep.Print(cmd.OutOrStdout(), ar.PrintLoad)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(AssembleCmd)
	AssembleCmd.Flags().StringP("gridFile", "F", "", "Grid file to read in SU2 (.su2) format")
	AssembleCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for run parameters like:\n\t- QuadratureOrder\n\t- Conductivity per region")
	AssembleCmd.Flags().BoolP("load", "l", false, "print the load vector")
}

func processInput(ar *AssembleRun, w io.Writer) (*InputParameters.InputParameters, error) {
	if len(ar.GridFile) == 0 {
		return nil, fmt.Errorf("must supply a grid file (-F, --gridFile) in SU2 format")
	}
	if len(ar.ICFile) == 0 {
		fmt.Fprintf(w, "Example File:%s\n", exampleInput)
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
	}
	data, err := os.ReadFile(ar.ICFile)
	if err != nil {
		return nil, err
	}
	ip := &InputParameters.InputParameters{}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", ar.ICFile, err)
	}
	return ip, nil
}

// Assemble builds the identity, gradient and potential maps of the run and
// assembles them.
func Assemble(msh *mesh.Mesh, ip *InputParameters.InputParameters, logger *zap.Logger) (*AssemblyReport, error) {
	policy, err := assembly.ParseIntegrationPolicy(ip.IntegrationPolicy)
	if err != nil {
		return nil, err
	}
	var kopts []utils.KernelOption
	if ip.BLAS != nil {
		kopts = append(kopts, utils.WithBLAS(*ip.BLAS))
	}
	var (
		ev   = element.LinearSimplex{}
		opts = []assembly.Option{
			assembly.WithLogger(logger),
			assembly.WithKernel(utils.NewKernel(kopts...)),
			assembly.WithIntegrationPolicy(policy),
			assembly.WithParallel(ip.Parallel),
		}
		order, nc, off = ip.QuadratureOrder, ip.Components, ip.DofOffset
		rep            = &AssemblyReport{Cells: msh.CellCount()}
	)
	I, err := assembly.NewIdentityMap(msh, ev, order, nc, off, opts...)
	if err != nil {
		return nil, err
	}
	G, err := assembly.NewGradUMap(msh, ev, order, nc, off, opts...)
	if err != nil {
		return nil, err
	}
	U, err := assembly.NewUMap(msh, ev, order, nc, off, opts...)
	if err != nil {
		return nil, err
	}
	rep.Dof = U.Dof()

	kappa := make(assembly.PerCell[float64], msh.CellCount())
	for i, c := range msh.Cells() {
		kappa[i] = ip.RegionValue(c.Tag(), "Conductivity", ip.Conductivity)
	}
	M := utils.NewPatternCSR("mass")
	if err = assembly.IntegrateBilinear(I, I, assembly.Scalar(1), M, false); err != nil {
		return nil, err
	}
	K := utils.NewPatternCSR("stiffness")
	if err = assembly.IntegrateBilinear(G, G, kappa, K, false); err != nil {
		return nil, err
	}
	if utils.IsNaN(M.M.RawMatrix().Data) || utils.IsNaN(K.M.RawMatrix().Data) {
		return nil, fmt.Errorf("NaN in the assembled matrices, check the conductivity of every region")
	}
	ones := utils.ConstArray(rep.Dof, 1)
	rep.MassNNZ, rep.StiffnessNNZ = M.NNZ(), K.NNZ()
	rep.Volume = floats.Sum(M.MulVec(ones))
	rep.RowSumMax = floats.Norm(K.MulVec(ones), math.Inf(1))
	rep.StiffnessNorm = floats.Norm(K.M.RawMatrix().Data, 1)

	if ip.Source != 0 {
		R, err := U.IntegrateVector(assembly.Scalar(ip.Source), false)
		if err != nil {
			return nil, err
		}
		rep.Load = R.Data()
	}
	if ip.MeanConstraint {
		C := assembly.NewConstantSpace(nc, rep.Dof, opts...)
		R, err := assembly.IntegrateBilinearMatrix(C, U, assembly.Scalar(1), false)
		if err != nil {
			return nil, err
		}
		rep.Constraint = make([]float64, nc)
		for c := range rep.Constraint {
			for j := 0; j < rep.Dof; j++ {
				rep.Constraint[c] += R.At(rep.Dof+c, j)
			}
		}
	}
	logger.Info("assembled",
		zap.Int("cells", rep.Cells),
		zap.Int("dof", rep.Dof),
		zap.Int("mass nnz", rep.MassNNZ),
		zap.Int("stiffness nnz", rep.StiffnessNNZ))
	return rep, nil
}

func (rep *AssemblyReport) Print(w io.Writer, load bool) {
	fmt.Fprintf(w, "[%d]\t\t\t\t= Cells\n", rep.Cells)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Dof\n", rep.Dof)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Mass NNZ\n", rep.MassNNZ)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Stiffness NNZ\n", rep.StiffnessNNZ)
	fmt.Fprintf(w, "%12.8f\t\t= Volume\n", rep.Volume)
	fmt.Fprintf(w, "%12.8f\t\t= Stiffness checksum\n", rep.StiffnessNorm)
	fmt.Fprintf(w, "%12.4e\t\t= Max stiffness row sum\n", rep.RowSumMax)
	for c, v := range rep.Constraint {
		fmt.Fprintf(w, "%12.8f\t\t= Constraint[%d]\n", v, c)
	}
	if load && rep.Load != nil {
		fmt.Fprintf(w, "Load = %v\n", rep.Load)
	}
}
