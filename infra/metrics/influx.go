package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/rvigier/loadshift/core/logger"
	coremetrics "github.com/rvigier/loadshift/core/metrics"
	"github.com/rvigier/loadshift/core/model"
)

// InfluxConfig describes the InfluxDB endpoint results are written to.
type InfluxConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// InfluxSink writes solve events and extracted results to an InfluxDB
// instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given endpoint.
func NewInfluxSink(cfg InfluxConfig, log logger.Logger) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      log,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns
// a NopSink when the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig, log logger.Logger) coremetrics.Sink {
	sink := NewInfluxSink(cfg, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			log.Errorf("influx health check error: %v", err)
		} else {
			log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSolve writes the solve event as a point.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("planner_solve").
		AddTag("approach", ev.Approach).
		AddTag("phase", ev.Phase).
		AddTag("status", ev.Status).
		AddField("duration_seconds", ev.Duration.Seconds()).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordResult writes the objective values and the per-slot load profile.
func (s *InfluxSink) RecordResult(res *model.Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := time.Now()

	p := write.NewPointWithMeasurement("schedule_result").
		AddTag("approach", res.Approach).
		AddField("ec", res.EC).
		AddField("pl", res.PL).
		SetTime(now)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return err
	}

	for slot, load := range res.LoadProfile {
		lp := write.NewPointWithMeasurement("load_profile").
			AddTag("approach", res.Approach).
			AddTag("time_slot", strconv.Itoa(slot)).
			AddField("power_kw", load).
			SetTime(now)
		if err := s.writeAPI.WritePoint(ctx, lp); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
