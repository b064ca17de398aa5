package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Field helpers for names that show up throughout the simulator
func Component(name string) Field {
	return String("component", name)
}

func DeviceID(id string) Field {
	return String("device_id", id)
}

func UserID(id string) Field {
	return String("user_id", id)
}

func AttackID(id string) Field {
	return String("attack_id", id)
}

func Model(m string) Field {
	return String("model", m)
}

func Decision(d string) Field {
	return String("decision", d)
}

func Resource(r string) Field {
	return String("resource", r)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}
