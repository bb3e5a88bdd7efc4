package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zsiec/ccsds-pipeline/internal/asm"
	"github.com/zsiec/ccsds-pipeline/internal/conv"
	"github.com/zsiec/ccsds-pipeline/internal/pnrandom"
	"github.com/zsiec/ccsds-pipeline/internal/profile"
	"github.com/zsiec/ccsds-pipeline/internal/rs"
	"github.com/zsiec/ccsds-pipeline/internal/spp"
	"github.com/zsiec/ccsds-pipeline/internal/tagstream"
	"github.com/zsiec/ccsds-pipeline/internal/tmframe"
)

func newEncodeCommand() *cobra.Command {
	var (
		profilesPath string
		pipelinePath string
		profileName  string
		count        int
		seqStart     int
		outPath      string
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode Space Packets from a profile into a CADU/coded bit stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEncode(cmd.Context(), encodeOpts{
				profilesPath: envOr("CCSDS_PROFILES", profilesPath),
				pipelinePath: envOr("CCSDS_PIPELINE_CONFIG", pipelinePath),
				profileName:  profileName,
				count:        count,
				seqStart:     seqStart,
				outPath:      outPath,
			})
		},
	}

	cmd.Flags().StringVar(&profilesPath, "profiles", "profiles.yaml", "path to the profiles YAML document")
	cmd.Flags().StringVar(&pipelinePath, "pipeline-config", "pipeline.yaml", "path to the pipeline-wide YAML config")
	cmd.Flags().StringVar(&profileName, "profile", "", "name of the profile to encode packets for (required)")
	cmd.Flags().IntVar(&count, "count", 1, "number of packets to generate")
	cmd.Flags().IntVar(&seqStart, "seq-start", 0, "starting sequence count")
	cmd.Flags().StringVar(&outPath, "out", "cadu.bin", "output file for the coded bit stream")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}

type encodeOpts struct {
	profilesPath string
	pipelinePath string
	profileName  string
	count        int
	seqStart     int
	outPath      string
}

func runEncode(ctx context.Context, opts encodeOpts) error {
	log := slog.With("component", "cmd.encode")

	profiles, err := profile.LoadProfiles(opts.profilesPath)
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}
	pcfg, err := profile.LoadPipelineConfig(opts.pipelinePath)
	if err != nil {
		return fmt.Errorf("loading pipeline config: %w", err)
	}

	var selected *profile.Profile
	for i := range profiles {
		if profiles[i].Name == opts.profileName {
			selected = &profiles[i]
			break
		}
	}
	if selected == nil {
		return fmt.Errorf("no profile named %q in %s", opts.profileName, opts.profilesPath)
	}

	var rawPackets []byte
	for i := 0; i < opts.count; i++ {
		seq := uint16(opts.seqStart + i)
		pkt, err := selected.Encode(seq, 0, 0, 0)
		if err != nil {
			return fmt.Errorf("encoding packet seq %d: %w", seq, err)
		}
		rawPackets = append(rawPackets, pkt...)
	}
	log.Info("packets built", "profile", selected.Name, "count", opts.count)

	tmCfg, err := pcfg.TMFrameConfig()
	if err != nil {
		return err
	}
	framer, err := tmframe.NewFramer(tmCfg)
	if err != nil {
		return err
	}

	p := tagstream.New(slog.Default(),
		spp.NewTagger(),
		framer,
		pnrandom.NewRandomizer(pnrandom.WithSeed(pcfg.LFSRSeed())),
		rs.NewEncodeStage(pcfg.InterleaveI),
		asm.NewInserter(),
		conv.NewStage(),
	)

	p.Feed(rawPackets, 0)
	p.Close()
	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("running transmit chain: %w", err)
	}

	coded, _ := p.Drain()
	if err := os.WriteFile(opts.outPath, coded, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.outPath, err)
	}
	log.Info("coded stream written", "path", opts.outPath, "bytes", len(coded))
	return nil
}
