package errx

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to an AppError with an appropriate status code.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		return &AppError{Err: err, Kind: KindStorage, Status: http.StatusNotFound, Message: RedisNotFoundMessage}
	}

	return &AppError{Err: err, Kind: KindStorage, Status: http.StatusBadGateway, Message: RedisErrorMessage}
}

// WrapPostgres maps Postgres errors to an AppError.
func WrapPostgres(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Err: err, Kind: KindStorage, Status: http.StatusBadGateway, Message: PostgresErrorMessage}
}
