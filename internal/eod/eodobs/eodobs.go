package eodobs

import (
	"context"

	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{
		summarizer: summarizer,
	}
}

func (oes *observableEodSummarizer) SummarizeDay(ctx context.Context, date string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeDay")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting EOD fills report", "date", date)

	csvPath, err := oes.summarizer.SummarizeDay(ctx, date)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "EOD fills report failed", err, "date", date)
		return "", err
	}

	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No orders journaled for EOD fills report", "date", date)
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "EOD fills report written",
		"date", date,
		"csv_path", csvPath,
	)
	return csvPath, nil
}
