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
	"time"

	"github.com/notargets/feassembly/utils"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

type BenchResult struct {
	Path    string
	Calls   int
	Wall    time.Duration
	BLASSum time.Duration
	BLASMin time.Duration
	Cycles  uint64
	MaxDiff float64 // Largest deviation from the fallback result
}

// BenchCmd represents the bench command
var BenchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Compare the BLAS and fallback paths of the dense kernel",
	RunE: func(cmd *cobra.Command, args []string) error {
		size, _ := cmd.Flags().GetInt("size")
		reps, _ := cmd.Flags().GetInt("reps")
		prof, _ := cmd.Flags().GetString("profile")
		metricsFile, _ := cmd.Flags().GetString("metricsFile")
		switch prof {
		case "":
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
		default:
			return fmt.Errorf("unknown profile %q, use cpu or mem", prof)
		}
		reg := prometheus.NewRegistry()
		res, err := Bench(size, reps, reg, logger)
		if err != nil {
			return err
		}
		PrintBench(cmd.OutOrStdout(), res)
		fmt.Fprintln(cmd.OutOrStdout(), utils.GetMemUsage())
		if metricsFile != "" {
			return prometheus.WriteToTextfile(metricsFile, reg)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(BenchCmd)
	BenchCmd.Flags().IntP("size", "n", 64, "dimension of the square operands")
	BenchCmd.Flags().IntP("reps", "r", 100, "products per path")
	BenchCmd.Flags().StringP("profile", "p", "", "write a cpu or mem profile to the working directory")
	BenchCmd.Flags().StringP("metricsFile", "m", "", "write kernel metrics in Prometheus text format")
}

// Bench runs reps products of two size×size matrices on each kernel path.
func Bench(size, reps int, reg prometheus.Registerer, logger *zap.Logger) ([]BenchResult, error) {
	if size < 1 || reps < 1 {
		return nil, fmt.Errorf("size and reps must be positive, have %d and %d", size, reps)
	}
	pm, err := utils.NewPrometheusMetrics(reg)
	if err != nil {
		return nil, err
	}
	var (
		A, B    = utils.NewMatrix(size, size), utils.NewMatrix(size, size)
		results []BenchResult
		ref     []float64
	)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			A.Set(i, j, math.Sin(float64(i+2*j)))
			B.Set(i, j, math.Cos(float64(i-j)))
		}
	}
	for _, blas := range []bool{false, true} {
		var (
			cm     = utils.NewCounterMetrics()
			k      = utils.NewKernel(utils.WithBLAS(blas), utils.WithMetrics(utils.TeeMetrics{cm, pm}))
			C      utils.Matrix
			ran    bool
			runErr error
		)
		run := func() error {
			ran = true
			for r := 0; r < reps && runErr == nil; r++ {
				runErr = k.Mult(A, B, &C, 1, 0)
			}
			return runErr
		}
		t0 := time.Now()
		cycles, err := cpuCycles(run)
		if err != nil && runErr == nil {
			logger.Debug("cpu cycles unavailable", zap.Error(err))
			if !ran {
				_ = run()
			}
		}
		if runErr != nil {
			return nil, runErr
		}
		res := BenchResult{
			Path:    "fallback",
			Calls:   cm.Count(false) + cm.Fallbacks(),
			Wall:    time.Since(t0),
			BLASSum: cm.SumTime(false),
			BLASMin: cm.MinTime(false),
			Cycles:  cycles,
		}
		if blas {
			res.Path = "blas (" + utils.BLASVendor() + ")"
		}
		if ref == nil {
			ref = C.Copy().Data()
		}
		res.MaxDiff = floats.Distance(ref, C.Data(), math.Inf(1))
		results = append(results, res)
	}
	return results, nil
}

func PrintBench(w io.Writer, res []BenchResult) {
	for _, r := range res {
		fmt.Fprintf(w, "%-16s calls %6d wall %12v blas sum %12v blas min %10v cycles %12d max diff %8.2e\n",
			r.Path, r.Calls, r.Wall, r.BLASSum, r.BLASMin, r.Cycles, r.MaxDiff)
	}
}
