package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/blend"
	"github.com/matthew-brett/xipy/pkg/config"
	"github.com/matthew-brett/xipy/pkg/coordmap"
	"github.com/matthew-brett/xipy/pkg/logging"
	"github.com/matthew-brett/xipy/pkg/visualization"
	"github.com/matthew-brett/xipy/pkg/volume"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "volblend.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	size := flag.Int("size", 64, "Edge length in voxels of the synthetic main volume")
	overStep := flag.Float64("over-step", 3, "Voxel size in mm of the synthetic over volume")
	extractSlices := flag.Bool("extract-slices", false, "Extract and save blended slices along all axes")
	slicesDir := flag.String("slices-dir", "", "Directory to save extracted slices (overrides the config)")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	if *size < 2 || *overStep <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Logging.SetLogger()
	defer logging.Shutdown()

	fmt.Println("================================")
	fmt.Println("VOLUME BLENDING: LUT COLOR MAPPING AND OVER COMPOSITING")
	fmt.Println("================================")

	opts, err := cfg.VolumeOptions()
	if err != nil {
		log.Fatalf("Invalid blending settings: %v", err)
	}
	images, err := volume.New(opts)
	if err != nil {
		log.Fatalf("Failed to create volume adapter: %v", err)
	}

	mainVol, overVol, err := phantoms(*size, *overStep)
	if err != nil {
		log.Fatalf("Failed to build phantoms: %v", err)
	}

	startTime := time.Now()
	if err := images.SetMain(mainVol); err != nil {
		log.Fatalf("Failed to attach main volume: %v", err)
	}
	if err := images.SetOver(overVol); err != nil {
		log.Fatalf("Failed to attach over volume: %v", err)
	}
	blended, err := images.ImageArray()
	if err != nil {
		log.Fatalf("Blending failed: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nBlending completed in %.3f seconds\n", processingTime.Seconds())
	fmt.Printf("Grid: shape %v, spacing %v mm, origin %v mm\n", images.Shape(), images.Spacing(), images.Origin())
	fmt.Printf("Blended volume: %s of RGBA\n", logging.Bytes(len(blended.Data)))
	printCoverage(blended)

	stats := images.State().Stats()
	fmt.Println("\nRecomputation:")
	fmt.Printf("- Full lookups: main %d, over %d\n", stats.FullLookups[blend.Main], stats.FullLookups[blend.Over])
	fmt.Printf("- Alpha remaps: main %d, over %d\n", stats.AlphaRemaps[blend.Main], stats.AlphaRemaps[blend.Over])
	fmt.Printf("- Over resamples: %d\n", stats.Resamples)
	fmt.Printf("- Composites: %d\n", stats.Composites)

	saveSlices := *extractSlices || cfg.Output.SaveSlices
	if saveSlices {
		dir := cfg.Output.SliceDir
		if *slicesDir != "" {
			dir = *slicesDir
		}
		fmt.Println("\nExtracting blended slices along all axes...")

		viewer := visualization.NewViewer(blended, images.Spacing())
		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(dir, axis)
			fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)

			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				logging.Warningf("Failed to save %s-axis slices: %v", axis, err)
			}
		}

		fmt.Println("Slice extraction completed!")
	}
}

// phantoms builds a main volume with a smooth radial profile and a coarser,
// shifted over volume holding a bright blob
func phantoms(size int, overStep float64) (*models.ScalarVolume, *models.ScalarVolume, error) {
	half := float64(size-1) / 2
	mainShape := models.Shape{size, size, size}
	mainData := make([]float64, mainShape.Size())
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			for k := 0; k < size; k++ {
				r := math.Sqrt(sq(float64(i)-half)+sq(float64(j)-half)+sq(float64(k)-half)) / half
				v := 0.0
				if r < 1 {
					v = 1 - r*r
				}
				mainData[mainShape.Offset(i, j, k)] = v
			}
		}
	}
	mainVol, err := models.NewScalarVolume(mainData, mainShape,
		coordmap.FromStartStep([3]float64{-half, -half, -half}, [3]float64{1, 1, 1}))
	if err != nil {
		return nil, nil, err
	}

	// the blob sits off-centre so the resampled over runs past the main grid
	n := int(math.Ceil(float64(size)/overStep)) + 1
	overShape := models.Shape{n, n, n}
	start := -half / 2
	center := start + overStep*float64(n-1)/2
	sigma := half / 3
	overData := make([]float64, overShape.Size())
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				d := sq(start+overStep*float64(i)-center) +
					sq(start+overStep*float64(j)-center) +
					sq(start+overStep*float64(k)-center)
				overData[overShape.Offset(i, j, k)] = math.Exp(-d / (2 * sigma * sigma))
			}
		}
	}
	overVol, err := models.NewScalarVolume(overData, overShape,
		coordmap.FromStartStep([3]float64{start, start, start}, [3]float64{overStep, overStep, overStep}))
	if err != nil {
		return nil, nil, err
	}
	return mainVol, overVol, nil
}

func sq(x float64) float64 { return x * x }

// printCoverage summarizes the opacity of the blended volume
func printCoverage(img *models.RGBAVolume) {
	if img.Empty() {
		fmt.Println("Blended volume is empty")
		return
	}
	alpha := make([]float64, len(img.Data)/4)
	opaque := 0
	for i := range alpha {
		a := img.Data[i*4+3]
		alpha[i] = float64(a) / 255
		if a == 255 {
			opaque++
		}
	}
	mean, std := stat.MeanStdDev(alpha, nil)
	fmt.Printf("Coverage: mean alpha %.3f (sd %.3f), %.1f%% of voxels opaque\n",
		mean, std, 100*float64(opaque)/float64(len(alpha)))
}
