// Package main is a small command-line harness for exercising a MemTable
// end to end: it builds a synthetic schema, drives a batch of synthetic
// tuples through Insert, flushes to a segment file, and reports the
// memory and row counts observed along the way.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Gourab-18/olap_memtable/pkg/memtable"
	"github.com/Gourab-18/olap_memtable/pkg/rowset"
	"github.com/Gourab-18/olap_memtable/pkg/schema"
	"github.com/Gourab-18/olap_memtable/pkg/tracker"
	"github.com/Gourab-18/olap_memtable/pkg/tuple"
)

type runFlags struct {
	rows     int
	keySpace int
	keysType string
	outFile  string
	memLimit int64
	config   string
}

func main() {
	flags := &runFlags{}
	rootCmd := &cobra.Command{
		Use:   "memtablebench",
		Short: "Drive synthetic rows through a MemTable and flush to a segment",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(flags)
		},
	}

	rootCmd.Flags().IntVar(&flags.rows, "rows", 10_000, "number of synthetic rows to insert")
	rootCmd.Flags().IntVar(&flags.keySpace, "key-space", 1_000, "number of distinct keys to draw from (smaller forces collisions)")
	rootCmd.Flags().StringVar(&flags.keysType, "keys-type", "agg", "duplicate-key handling: dup, unique, or agg")
	rootCmd.Flags().StringVarP(&flags.outFile, "output", "o", "memtable.segment", "output segment path")
	rootCmd.Flags().Int64Var(&flags.memLimit, "mem-limit", 0, "root memory tracker budget in bytes (0 means unlimited)")
	rootCmd.Flags().StringVar(&flags.config, "config", "", "optional config file (viper-format: yaml, json, toml) overriding the flags above")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(flags *runFlags) error {
	if err := bindConfig(flags); err != nil {
		return fmt.Errorf("memtablebench: loading config: %w", err)
	}

	keysType, err := parseKeysType(flags.keysType)
	if err != nil {
		return err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("memtablebench: building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	s, err := benchSchema(keysType)
	if err != nil {
		return fmt.Errorf("memtablebench: building schema: %w", err)
	}

	writer, err := rowset.NewSegmentWriter(flags.outFile)
	if err != nil {
		return fmt.Errorf("memtablebench: opening segment writer: %w", err)
	}
	defer func() { _ = writer.Close() }()

	root := tracker.New("memtablebench-root", flags.memLimit)
	mt, err := memtable.New("bench-tablet", s, keysType, tuple.NewDescriptor(len(s.Columns)), writer, root, logger)
	if err != nil {
		return fmt.Errorf("memtablebench: constructing memtable: %w", err)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < flags.rows; i++ {
		t := syntheticTuple(rng, flags.keySpace)
		if err := mt.Insert(t); err != nil {
			logger.Error("insert failed, stopping early", zap.Int("row", i), zap.Error(err))
			break
		}
	}

	logger.Info("insert pass complete", zap.Int64("memory_usage_bytes", mt.MemoryUsage()))

	if err := mt.Close(); err != nil {
		return fmt.Errorf("memtablebench: flush: %w", err)
	}
	mt.Destroy()

	logger.Info("flush complete", zap.String("segment", flags.outFile))
	return nil
}

func bindConfig(flags *runFlags) error {
	if flags.config == "" {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(flags.config)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	if v.IsSet("rows") {
		flags.rows = v.GetInt("rows")
	}
	if v.IsSet("key-space") {
		flags.keySpace = v.GetInt("key-space")
	}
	if v.IsSet("keys-type") {
		flags.keysType = v.GetString("keys-type")
	}
	if v.IsSet("output") {
		flags.outFile = v.GetString("output")
	}
	if v.IsSet("mem-limit") {
		flags.memLimit = v.GetInt64("mem-limit")
	}
	return nil
}

func parseKeysType(s string) (schema.KeysType, error) {
	switch s {
	case "dup":
		return schema.DupKeys, nil
	case "unique":
		return schema.UniqueKeys, nil
	case "agg":
		return schema.AggKeys, nil
	default:
		return 0, fmt.Errorf("memtablebench: unknown keys-type %q (want dup, unique, or agg)", s)
	}
}

// benchSchema builds a two-key, two-value synthetic schema: (region, id) key
// prefix, a summed count and a max-tracked score. Under DupKeys/UniqueKeys
// the value columns still validate (AggNone is always legal), they simply
// never merge.
func benchSchema(keysType schema.KeysType) (*schema.Schema, error) {
	countAgg, scoreAgg := schema.AggSum, schema.AggMax
	if keysType != schema.AggKeys {
		countAgg, scoreAgg = schema.AggNone, schema.AggNone
	}
	return schema.New([]schema.Column{
		{Name: "region", Index: 0, Type: schema.Varchar, IsKey: true},
		{Name: "id", Index: 1, Type: schema.Int64, IsKey: true},
		{Name: "count", Index: 2, Type: schema.Int64, Agg: countAgg},
		{Name: "score", Index: 3, Type: schema.Int32, Agg: scoreAgg},
	}, 2)
}

var regions = []string{"us-east", "us-west", "eu-west", "ap-south"}

// memTuple is an in-memory tuple.Tuple over pre-encoded column payloads,
// used only by this harness to feed synthetic data through Insert.
type memTuple struct {
	values [][]byte
	nulls  []bool
}

func (t memTuple) IsNull(slot tuple.Slot) bool { return t.nulls[slot.ColumnIndex] }
func (t memTuple) Get(slot tuple.Slot) []byte  { return t.values[slot.ColumnIndex] }

func syntheticTuple(rng *rand.Rand, keySpace int) memTuple {
	region := regions[rng.Intn(len(regions))]
	id := int64(rng.Intn(keySpace))
	count := int64(rng.Intn(100))
	score := int32(rng.Intn(1000))

	return memTuple{
		values: [][]byte{
			[]byte(region),
			encodeInt64(id),
			encodeInt64(count),
			encodeInt32(score),
		},
		nulls: []bool{false, false, false, false},
	}
}

func encodeInt64(x int64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(x >> (8 * i))
	}
	return b
}

func encodeInt32(x int32) []byte {
	b := make([]byte, 4)
	for i := 0; i < 4; i++ {
		b[i] = byte(x >> (8 * i))
	}
	return b
}
