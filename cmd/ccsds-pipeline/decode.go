package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zsiec/ccsds-pipeline/internal/asm"
	"github.com/zsiec/ccsds-pipeline/internal/pktstatus"
	"github.com/zsiec/ccsds-pipeline/internal/pnrandom"
	"github.com/zsiec/ccsds-pipeline/internal/profile"
	"github.com/zsiec/ccsds-pipeline/internal/rs"
	"github.com/zsiec/ccsds-pipeline/internal/spp"
	"github.com/zsiec/ccsds-pipeline/internal/tagstream"
	"github.com/zsiec/ccsds-pipeline/internal/tmframe"
	"github.com/zsiec/ccsds-pipeline/internal/viterbi"
)

func newDecodeCommand() *cobra.Command {
	var (
		profilesPath string
		pipelinePath string
		inPath       string
	)

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a coded bit stream back into Space Packets and report per-APID status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := runDecode(cmd.Context(), decodeOpts{
				profilesPath: envOr("CCSDS_PROFILES", profilesPath),
				pipelinePath: envOr("CCSDS_PIPELINE_CONFIG", pipelinePath),
				inPath:       inPath,
			})
			return err
		},
	}

	cmd.Flags().StringVar(&profilesPath, "profiles", "profiles.yaml", "path to the profiles YAML document")
	cmd.Flags().StringVar(&pipelinePath, "pipeline-config", "pipeline.yaml", "path to the pipeline-wide YAML config")
	cmd.Flags().StringVar(&inPath, "in", "cadu.bin", "input coded bit stream (hard bytes, as produced by encode)")

	return cmd
}

type decodeOpts struct {
	profilesPath string
	pipelinePath string
	inPath       string
}

// decodeResult is what runDecode hands back above and beyond the log
// lines it emits, so a test can assert on the recovered stream and
// per-APID status without scraping slog output.
type decodeResult struct {
	Recovered     []byte
	PacketTags    []tagstream.Tag
	APIDSnapshots []pktstatus.Snapshot
	FrameSnapshot tmframe.FrameSnapshot
	RecoveredErrs map[string]int64
}

func runDecode(ctx context.Context, opts decodeOpts) (decodeResult, error) {
	log := slog.With("component", "cmd.decode")

	profiles, err := profile.LoadProfiles(opts.profilesPath)
	if err != nil {
		return decodeResult{}, fmt.Errorf("loading profiles: %w", err)
	}
	pcfg, err := profile.LoadPipelineConfig(opts.pipelinePath)
	if err != nil {
		return decodeResult{}, fmt.Errorf("loading pipeline config: %w", err)
	}

	coded, err := os.ReadFile(opts.inPath)
	if err != nil {
		return decodeResult{}, fmt.Errorf("reading %s: %w", opts.inPath, err)
	}

	tmCfg, err := pcfg.TMFrameConfig()
	if err != nil {
		return decodeResult{}, err
	}
	frameStats := tmframe.NewFrameStats()
	unframer, err := tmframe.NewUnframer(tmCfg, frameStats)
	if err != nil {
		return decodeResult{}, err
	}

	byAPID := profile.ByAPID(profiles)
	lookup := func(apid uint16) (spp.APIDConfig, bool) {
		prof, ok := byAPID[apid]
		if !ok {
			return spp.APIDConfig{}, false
		}
		cfg, err := prof.ReceiveConfig()
		if err != nil {
			return spp.APIDConfig{}, false
		}
		return cfg, true
	}

	metrics := pktstatus.NewMetrics()
	registry := pktstatus.NewRegistry(metrics)

	// rawCaduLen is the ASM+RS codeword length the convolutional encoder
	// takes as input; the coded file on disk holds twice that many bytes
	// per CADU (spec §4.6 "output length doubles"), and the Viterbi
	// stage's length tag counts message bits, i.e. rawCaduLen*8.
	rawCaduLen := len(asm.Marker) + rs.N*pcfg.InterleaveI
	codedCaduLen := rawCaduLen * 2
	nsym := rawCaduLen * 8
	if len(coded)%codedCaduLen != 0 {
		return decodeResult{}, fmt.Errorf("input %s holds %d bytes, not a whole multiple of the %d-byte coded CADU", opts.inPath, len(coded), codedCaduLen)
	}

	p := tagstream.New(slog.Default(),
		viterbi.NewStage(viterbi.PM1),
		asm.NewStripper(true),
		rs.NewDecodeStage(pcfg.InterleaveI),
		pnrandom.NewDerandomizer(pnrandom.WithSeed(pcfg.LFSRSeed())),
		unframer,
		spp.NewTagger(),
		spp.NewReconstructor(lookup, registry),
	)

	// The convolutional encoder resets its shift register at the start
	// of every CADU (spec §9 decision: no cross-frame flush state), so
	// each CADU's symbols must be Viterbi-decoded as its own independent
	// block rather than one run across the whole coded file.
	for off := 0; off < len(coded); off += codedCaduLen {
		cadu := coded[off : off+codedCaduLen]
		p.Feed(viterbi.EncodeSofts(hardSoftsFromBytes(cadu)), nsym)
	}
	p.Close()
	if err := p.Run(ctx); err != nil {
		return decodeResult{}, fmt.Errorf("running receive chain: %w", err)
	}

	recovered, tags := p.Drain()
	log.Info("packets recovered", "count", len(tags), "bytes", len(recovered))
	recoveredErrs := p.RecoveredErrors()
	for stage, n := range recoveredErrs {
		log.Warn("stage dropped frames to a recoverable error", "stage", stage, "count", n)
	}

	snapshots := registry.Snapshots()
	for _, snap := range snapshots {
		log.Info("APID status",
			"apid", fmt.Sprintf("0x%03X", snap.APID),
			"received", snap.Received,
			"duplicates", snap.Duplicates,
			"gap_total", snap.GapTotal,
			"mic_ok", snap.MICOK,
			"mic_bad", snap.MICBad,
		)
	}
	frameSnap := frameStats.Snapshot()
	log.Info("frame status", "received", frameSnap.Received, "crc_ok", frameSnap.CRCOK, "crc_bad", frameSnap.CRCBad)

	return decodeResult{
		Recovered:     recovered,
		PacketTags:    tags,
		APIDSnapshots: snapshots,
		FrameSnapshot: frameSnap,
		RecoveredErrs: recoveredErrs,
	}, nil
}

// hardSoftsFromBytes maps each bit of data (MSB-first) to a +-1 soft
// value under the PM1 convention internal/viterbi.Decoder uses: bit 0 ->
// +1, bit 1 -> -1. This lets the CLI round-trip its own encode output
// without a real demodulator in front of it.
func hardSoftsFromBytes(data []byte) []float64 {
	out := make([]float64, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bit := (b >> uint(i)) & 1
			out = append(out, 1-2*float64(bit))
		}
	}
	return out
}
