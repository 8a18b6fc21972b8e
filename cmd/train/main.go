package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sync"

	"github.com/gosuri/uiprogress"

	"github.com/ieee0824/tagger-go/modelstore"
	"github.com/ieee0824/tagger-go/tagger"
)

func main() {
	trainPath := flag.String("train", "data/train.tag", "path to training corpus (word/tag tokens, bare words allowed)")
	devPath := flag.String("dev", "", "path to held-out corpus for the convergence loss (defaults to the training corpus)")
	output := flag.String("output", "data/hmm.gob", "output model path")
	lambda := flag.Float64("lambda", 0, "add-lambda smoothing constant")
	tolerance := flag.Float64("tolerance", 0.001, "relative loss improvement below which training stops")
	maxSteps := flag.Int("steps", 50, "max EM epochs")
	unigram := flag.Bool("unigram", false, "use the unigram (position-independent) transition model")
	seed := flag.Int64("seed", 1337, "random seed for parameter initialization")
	workers := flag.Int("workers", 1, "parallel E-step workers (1 = sequential)")
	storePath := flag.String("store", "", "optional SQLite model store to register the result in")
	name := flag.String("name", "hmm", "model name within the store")
	verbose := flag.Bool("v", false, "log training progress to stderr")
	flag.Parse()

	tf, err := os.Open(*trainPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open training corpus: %v\n", err)
		os.Exit(1)
	}
	corpus, err := tagger.ReadCorpus(tf)
	_ = tf.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read training corpus: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Training corpus: %d sentences, %d tags, %d words\n",
		len(corpus.Sentences), corpus.Tagset.Size(), corpus.Vocab.Size())

	dev := corpus
	if *devPath != "" {
		df, err := os.Open(*devPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open dev corpus: %v\n", err)
			os.Exit(1)
		}
		dev, err = tagger.ReadCorpusInto(df, corpus.Tagset, corpus.Vocab)
		_ = df.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "read dev corpus: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Dev corpus: %d sentences\n", len(dev.Sentences))
	}

	rng := rand.New(rand.NewSource(*seed))
	model, err := tagger.New(corpus.Tagset, corpus.Vocab, rng, *unigram)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build model: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		model.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	cfg := tagger.TrainConfig{
		Lambda:    *lambda,
		Tolerance: *tolerance,
		MaxSteps:  *maxSteps,
		SavePath:  *output,
		Workers:   *workers,
		Progress:  epochBars(len(corpus.Sentences)),
	}

	uiprogress.Start()
	err = model.Train(corpus, tagger.CrossEntropyLoss(dev), cfg)
	uiprogress.Stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "training: %v\n", err)
		os.Exit(1)
	}

	devLoss, err := tagger.CrossEntropyLoss(dev)(model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "final loss: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Final dev cross-entropy: %.4f nats/token\n", devLoss)
	fmt.Fprintf(os.Stderr, "Model written to %s\n", *output)

	if *storePath != "" {
		store, err := modelstore.Open(*storePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open model store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		meta := modelstore.TrainingMeta{Epochs: *maxSteps, Lambda: *lambda, DevLoss: devLoss}
		if err := store.Put(context.Background(), *name, model, meta); err != nil {
			fmt.Fprintf(os.Stderr, "store model: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Model registered as %q in %s\n", *name, *storePath)
	}
}

// epochBars renders one progress bar per EM epoch. Safe to call from
// several workers; the bar library handles concurrent increments and the
// epoch transition is guarded here.
func epochBars(total int) func(epoch, done, total int) {
	var mu sync.Mutex
	var bar *uiprogress.Bar
	lastEpoch := -1
	return func(epoch, done, _ int) {
		mu.Lock()
		defer mu.Unlock()
		if epoch != lastEpoch {
			label := fmt.Sprintf("epoch %d", epoch+1)
			bar = uiprogress.AddBar(total)
			bar.AppendCompleted()
			bar.PrependElapsed()
			bar.PrependFunc(func(*uiprogress.Bar) string { return label })
			lastEpoch = epoch
		}
		if done > bar.Current() {
			_ = bar.Set(done)
		}
	}
}
