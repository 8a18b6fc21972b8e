package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ieee0824/tagger-go/modelstore"
	"github.com/ieee0824/tagger-go/tagger"
)

func main() {
	modelPath := flag.String("model", "data/hmm.gob", "trained model path")
	storePath := flag.String("store", "", "load the model from a SQLite model store instead of a file")
	name := flag.String("name", "hmm", "model name within the store")
	input := flag.String("input", "", "input corpus (default stdin); gold tags, if present, are used for accuracy")
	flag.Parse()

	model, err := loadModel(*modelPath, *storePath, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load model: %v\n", err)
		os.Exit(1)
	}

	var in io.Reader = os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	corpus, err := tagger.ReadCorpusInto(in, model.Tagset, model.Vocab)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var goldTokens, correct int
	for _, sent := range corpus.Sentences {
		// Decode from the bare words so held-out gold tags never leak
		// into the decoder as constraints.
		words := make(tagger.Sentence, len(sent))
		for i, tok := range sent {
			words[i] = tagger.Token{Word: tok.Word}
		}
		tagged, err := model.ViterbiTag(words, corpus)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tagging %q: %v\n", sent.String(), err)
			os.Exit(1)
		}
		fmt.Fprintln(out, tagged.String())

		for i, tok := range sent {
			if tok.HasTag {
				goldTokens++
				if tagged[i].Tag == tok.Tag {
					correct++
				}
			}
		}
	}

	if goldTokens > 0 {
		fmt.Fprintf(os.Stderr, "Tagging accuracy: %.2f%% (%d/%d)\n",
			100*float64(correct)/float64(goldTokens), correct, goldTokens)
	}
}

func loadModel(path, storePath, name string) (*tagger.Model, error) {
	if storePath == "" {
		return tagger.Load(path)
	}
	store, err := modelstore.Open(storePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	m, _, err := store.Get(context.Background(), name)
	return m, err
}
