package commands

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/rollcache/internal/logger"
)

var (
	readBlockSize   uint64
	readHeaderBytes uint64
	readTiers       []string
)

var readCmd = &cobra.Command{
	Use:   "read <bucket/key>[,<bucket/key>...]",
	Short: "Open a stream and copy it to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runRead,
}

func init() {
	readCmd.Flags().Uint64Var(&readBlockSize, "block-size", 0, "override the configured block size, in bytes")
	readCmd.Flags().Uint64Var(&readHeaderBytes, "header-bytes", 0, "override the configured per-object header skip, in bytes")
	readCmd.Flags().StringArrayVar(&readTiers, "tier", nil, "tier override as dir=budget (repeatable); budget 0 or omitted uses live free space")
}

func runRead(cmd *cobra.Command, args []string) error {
	initLoggerFromFlags(cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paths := strings.Split(args[0], ",")

	store, err := openObjectStore(ctx, cfg)
	if err != nil {
		return err
	}

	tierOverride, err := parseTierFlags(readTiers)
	if err != nil {
		return err
	}

	s, err := openStream(ctx, store, paths, cfg, tierOverride, readBlockSize, readHeaderBytes)
	if err != nil {
		return err
	}
	defer s.Close()

	const copyChunk = 1 << 20
	for {
		buf, err := s.Read(ctx, copyChunk)
		if err != nil {
			return err
		}
		if len(buf) == 0 {
			break
		}
		if _, err := os.Stdout.Write(buf); err != nil {
			return err
		}
	}

	logger.InfoCtx(ctx, "read complete", "stream_id", s.ID(), "bytes", s.Size())
	return nil
}
