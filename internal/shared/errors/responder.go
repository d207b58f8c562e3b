package errors

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
)

const ContentTypeProblemJSON = "application/problem+json"

// ErrorMapper translates a domain or application error into a problem.
// The boolean is false when the mapper does not recognise the error.
type ErrorMapper func(err error) (ProblemDetail, bool)

// Responder writes problems, consulting its mappers in order before falling
// back to a 500.
type Responder struct {
	// BaseURI is prepended to relative problem type URIs.
	BaseURI string
	mappers []ErrorMapper
}

func NewResponder(baseURI string, mappers ...ErrorMapper) *Responder {
	return &Responder{BaseURI: baseURI, mappers: mappers}
}

func (r *Responder) AddMapper(mapper ErrorMapper) {
	if mapper != nil {
		r.mappers = append(r.mappers, mapper)
	}
}

// Respond sends the problem and aborts the gin chain.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.BaseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.BaseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.AbortWithStatusJSON(problem.Status, problem)
}

// RespondError resolves err through the mapper chain. A ProblemDetail anywhere
// in the chain is sent as is and cancelled requests become 503.
func (r *Responder) RespondError(c *gin.Context, err error) {
	r.Respond(c, r.Resolve(err))
}

// RespondStatus answers transport-level failures such as undecodable bodies.
func (r *Responder) RespondStatus(c *gin.Context, status int, err error) {
	problem := ForStatus(status)
	if err != nil {
		problem = problem.WithDetail(err.Error())
	}
	r.Respond(c, problem)
}

// Resolve is the mapping used by RespondError, exposed for callers that log
// the status before writing.
func (r *Responder) Resolve(err error) ProblemDetail {
	var problem ProblemDetail
	if errors.As(err, &problem) {
		return problem
	}
	for _, mapper := range r.mappers {
		if mapped, ok := mapper(err); ok {
			return mapped
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrUnavailable.WithDetail(err.Error())
	}
	return ErrInternal.WithDetail(err.Error())
}
