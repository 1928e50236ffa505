package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Context types recognized by the extended profile endpoints.
const (
	ContextEducation      = "educationalQualifications"
	ContextAchievements   = "achievements"
	ContextServiceHistory = "serviceHistory"
)

// Server captures top-level service configuration.
type Server struct {
	Addr          string
	Environment   string
	JWTSigningKey string
	Cassandra     Cassandra
	Redis         Redis
	Profile       Profile
}

// Cassandra holds connection settings for the wide-column store.
type Cassandra struct {
	Hosts    []string
	Keyspace string
	Timeout  time.Duration
}

// Redis holds connection settings for the cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Profile holds the behavioural knobs of the profile endpoints: recognized
// extended-profile sections, per-section mandatory fields, the basic-profile
// column projection, and the completion scoring inputs.
type Profile struct {
	ContextTypes             []string
	MandatoryFields          map[string]string
	BasicProfileFields       []string
	CompletionRequiredFields []string
	CompletionExtendedFields []string
	CompletionFieldWeight    float64
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          envOr("USER_PROFILE_ADDR", ":8080"),
		Environment:   envOr("ENVIRONMENT", "development"),
		JWTSigningKey: jwtSigningKey,
		Cassandra: Cassandra{
			Hosts:    splitCSV(envOr("CASSANDRA_HOSTS", "127.0.0.1")),
			Keyspace: envOr("CASSANDRA_KEYSPACE", "sunbird"),
			Timeout:  envDuration("CASSANDRA_TIMEOUT", 5*time.Second),
		},
		Redis: Redis{
			URL:          envOr("REDIS_URL", "redis://127.0.0.1:6379/0"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Profile: Profile{
			ContextTypes: splitCSV(envOr("CONTEXT_TYPES",
				ContextEducation+","+ContextAchievements+","+ContextServiceHistory)),
			MandatoryFields: map[string]string{
				ContextEducation:      envOr("REQUIRED_FIELDS_EDUCATION", "degree,institutionName,startYear,endYear"),
				ContextServiceHistory: envOr("REQUIRED_FIELDS_SERVICE_HISTORY", "organisation,designation,startDate"),
				ContextAchievements:   envOr("REQUIRED_FIELDS_ACHIEVEMENT", "title,issuedBy,issuedDate"),
			},
			BasicProfileFields: splitCSV(envOr("BASIC_PROFILE_FIELDS",
				"id,firstname,lastname,channel,rootorgid,profiledetails")),
			CompletionRequiredFields: splitCSV(envOr("PROFILE_COMPLETION_REQUIRED_FIELDS",
				"firstname,lastname,channel,educationalQualifications,serviceHistory,achievements")),
			CompletionExtendedFields: splitCSV(envOr("PROFILE_COMPLETION_EXTENDED_FIELDS",
				ContextEducation+","+ContextAchievements+","+ContextServiceHistory)),
			CompletionFieldWeight: envFloat("PROFILE_COMPLETION_FIELD_WEIGHT", 16.7),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
