package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config gathers everything main needs to wire the process. Values come from
// the environment so deployments stay twelve-factor; defaults favor local
// development.
type Config struct {
	Addr string

	DatabaseURL string

	Kafka                         Kafka
	OppfolgingstilfelleServiceURL string
	IdentityRegistryURL           string
	ExternalCallTimeout           time.Duration

	JWTSigningKey string

	Leader LeaderElection
	Cron   Cron
}

// Kafka holds broker and topic configuration for the consumers and the
// outbox relay producer.
type Kafka struct {
	Brokers []string
	GroupID string

	TimelineTopic      string
	MeetingStatusTopic string
	IdentityMergeTopic string
	CandidacyTopic     string
}

// LeaderElection selects the oracle implementation: "http" polls the elector
// sidecar, "redis" takes a lease, "always" is for single-instance setups.
type LeaderElection struct {
	Mode       string
	ElectorURL string
	RedisURL   string
	LeaseTTL   time.Duration
}

// Cron holds the sweep intervals and the outdated-candidacy cutoff.
type Cron struct {
	SchedulingInterval      time.Duration
	CheckpointInterval      time.Duration
	OutdatedInterval        time.Duration
	OutboxRelayInterval     time.Duration
	InitialDelay            time.Duration
	OutdatedCandidacyCutoff time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:        envOr("KANDIDAT_ADDR", ":8080"),
		DatabaseURL: envOr("KANDIDAT_DATABASE_URL", "postgres://localhost:5432/dialogmotekandidat"),
		Kafka: Kafka{
			Brokers:            strings.Split(envOr("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID:            envOr("KAFKA_GROUP_ID", "dialogmotekandidat"),
			TimelineTopic:      envOr("KAFKA_TOPIC_TIMELINE", "oppfolgingstilfelle-person"),
			MeetingStatusTopic: envOr("KAFKA_TOPIC_MEETING_STATUS", "dialogmote-statusendring"),
			IdentityMergeTopic: envOr("KAFKA_TOPIC_IDENTITY_MERGE", "pdl-aktor-v2"),
			CandidacyTopic:     envOr("KAFKA_TOPIC_CANDIDACY", "dialogmotekandidat-endring"),
		},
		OppfolgingstilfelleServiceURL: envOr("OPPFOLGINGSTILFELLE_URL", "http://isoppfolgingstilfelle"),
		IdentityRegistryURL:           envOr("IDENTITY_REGISTRY_URL", "http://pdl"),
		ExternalCallTimeout:           envDuration("EXTERNAL_CALL_TIMEOUT", 10*time.Second),
		JWTSigningKey:                 envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Leader: LeaderElection{
			Mode:       envOr("LEADER_MODE", "always"),
			ElectorURL: os.Getenv("ELECTOR_URL"),
			RedisURL:   os.Getenv("LEADER_REDIS_URL"),
			LeaseTTL:   envDuration("LEADER_LEASE_TTL", 30*time.Second),
		},
		Cron: Cron{
			SchedulingInterval:      envDuration("CRON_SCHEDULING_INTERVAL", 5*time.Minute),
			CheckpointInterval:      envDuration("CRON_CHECKPOINT_INTERVAL", 10*time.Minute),
			OutdatedInterval:        envDuration("CRON_OUTDATED_INTERVAL", 4*time.Hour),
			OutboxRelayInterval:     envDuration("CRON_OUTBOX_RELAY_INTERVAL", 20*time.Second),
			InitialDelay:            envDuration("CRON_INITIAL_DELAY", 2*time.Minute),
			OutdatedCandidacyCutoff: envDuration("OUTDATED_CANDIDACY_CUTOFF", outdatedCutoffDefault()),
		},
	}
}

// Candidacies older than about ten months without a held meeting are closed by
// the cleanup sweep.
func outdatedCutoffDefault() time.Duration {
	return 10 * 30 * 24 * time.Hour
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
