package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/dcweber/gokalman/config"
	"github.com/dcweber/gokalman/kalman"
	"github.com/dcweber/gokalman/statespace"
)

var (
	csvPath  string
	iniPath  string
	transVal float64
	obsVar   float64
	stateVar float64
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kffit",
		Short: "Run the local-level Kalman filter over a CSV observation series",
		RunE:  runFit,
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "path to a single-column CSV of observations (required)")
	cmd.Flags().StringVar(&iniPath, "config", "", "path to an INI file overriding filter options")
	cmd.Flags().Float64Var(&transVal, "t", 1.0, "local-level transition coefficient")
	cmd.Flags().Float64Var(&obsVar, "h", 1.0, "observation variance")
	cmd.Flags().Float64Var(&stateVar, "q", 1.0, "state shock variance")
	cmd.MarkFlagRequired("csv")
	return cmd
}

func runFit(cmd *cobra.Command, args []string) error {
	y, err := readCSVColumn(csvPath)
	if err != nil {
		return fmt.Errorf("kffit: %w", err)
	}

	opts := kalman.DefaultOptions()
	if iniPath != "" {
		opts, err = config.Load(iniPath)
		if err != nil {
			return fmt.Errorf("kffit: %w", err)
		}
	}

	mdl, err := buildLocalLevel(y, transVal, obsVar, stateVar)
	if err != nil {
		return fmt.Errorf("kffit: %w", err)
	}

	f, err := kalman.New(mdl, opts)
	if err != nil {
		return fmt.Errorf("kffit: %w", err)
	}

	ell, err := f.Run()
	if err != nil {
		return fmt.Errorf("kffit: %w", err)
	}

	fmt.Printf("observations:     %d\n", len(y))
	fmt.Printf("loglikelihood:    %v\n", ell)
	if t, ok := f.ConvergedAt(); ok {
		fmt.Printf("converged at t:   %d\n", t)
	} else {
		fmt.Printf("converged at t:   never\n")
	}

	return nil
}

func buildLocalLevel(y []float64, transVal, obsVar, stateVar float64) (*statespace.Model, error) {
	nobs := len(y)
	obs := mat.NewDense(1, nobs, y)

	one := mat.NewDense(1, 1, []float64{1})
	zero := mat.NewDense(1, 1, []float64{0})
	design, err := statespace.NewTimeVarying("design", nobs, 1, 1, one)
	if err != nil {
		return nil, err
	}
	obsIntercept, err := statespace.NewTimeVarying("obs_intercept", nobs, 1, 1, zero)
	if err != nil {
		return nil, err
	}
	obsCov, err := statespace.NewTimeVarying("obs_cov", nobs, 1, 1, mat.NewDense(1, 1, []float64{obsVar}))
	if err != nil {
		return nil, err
	}
	transition, err := statespace.NewTimeVarying("transition", nobs, 1, 1, mat.NewDense(1, 1, []float64{transVal}))
	if err != nil {
		return nil, err
	}
	stateIntercept, err := statespace.NewTimeVarying("state_intercept", nobs, 1, 1, zero)
	if err != nil {
		return nil, err
	}
	selection, err := statespace.NewTimeVarying("selection", nobs, 1, 1, one)
	if err != nil {
		return nil, err
	}
	stateCov, err := statespace.NewTimeVarying("state_cov", nobs, 1, 1, mat.NewDense(1, 1, []float64{stateVar}))
	if err != nil {
		return nil, err
	}

	mdl, err := statespace.New(obs, design, obsIntercept, obsCov, transition, stateIntercept, selection, stateCov)
	if err != nil {
		return nil, err
	}
	if err := mdl.InitializeApproximateDiffuse(1e6); err != nil {
		return nil, err
	}
	return mdl, nil
}

func readCSVColumn(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	y := make([]float64, 0, len(records))
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		field := rec[0]
		if field == "" || field == "NaN" {
			y = append(y, math.NaN())
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", field, err)
		}
		y = append(y, v)
	}
	return y, nil
}
