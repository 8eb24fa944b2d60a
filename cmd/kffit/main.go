// Command kffit runs the conventional Kalman filter over a CSV
// observation series and reports the accumulated log-likelihood and
// convergence period.
package main

import (
	"log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("kffit: %v", err)
	}
}
