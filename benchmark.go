package main

import (
	"flag"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/floodwatch/routing/router"
)

var (
	benchmarkCount = flag.Int("benchmark.count", 1000, "the random routing count for benchmark")
	benchmarkType  = flag.String("benchmark.type", "smart", "route type for benchmark")
	benchmarkSeed  = flag.Int64("benchmark.seed", 0, "the seed for benchmark")
	benchmarkCPU   = flag.Int("benchmark.cpu", 1, "the cpu count for benchmark")
)

func runBenchmark(engine *router.Router) {
	log.Logger.SetLevel(logrus.WarnLevel)
	routeType, err := router.ParseRouteType(*benchmarkType)
	if err != nil {
		log.Fatalf("benchmark: %v", err)
	}
	e := rand.New(rand.NewSource(*benchmarkSeed))
	// random endpoints inside the network's bounding box
	bound := engine.Bound()
	randPoint := func() orb.Point {
		return orb.Point{
			bound.Min[0] + e.Float64()*(bound.Max[0]-bound.Min[0]),
			bound.Min[1] + e.Float64()*(bound.Max[1]-bound.Min[1]),
		}
	}
	reqs := make([]router.RouteRequest, *benchmarkCount)
	for i := range reqs {
		reqs[i] = router.RouteRequest{
			Origin:      randPoint(),
			Destination: randPoint(),
			Type:        routeType,
			BestEffort:  true,
		}
	}

	start := time.Now()
	var wg sync.WaitGroup
	var success atomic.Int32
	if *benchmarkCPU == 1 {
		for _, req := range reqs {
			if _, err := engine.Route(req); err == nil {
				success.Add(1)
			}
		}
	} else {
		runtime.GOMAXPROCS(*benchmarkCPU)
		wg.Add(*benchmarkCount)
		for _, req := range reqs {
			go func(req router.RouteRequest) {
				defer wg.Done()
				if _, err := engine.Route(req); err == nil {
					success.Add(1)
				}
			}(req)
		}
		wg.Wait()
	}
	timeCost := time.Since(start) * time.Duration(*benchmarkCPU)
	log.Error(
		"benchmark finished", "\n",
		"count:", *benchmarkCount, "\n",
		"time:", timeCost, "\n",
		"avg:", timeCost/time.Duration(*benchmarkCount), "\n",
		"success:", success.Load(), "\n",
	)
}
