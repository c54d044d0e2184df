package publish

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"zetawatch/pkg/zeta"
)

// DefaultPartialSubject is where partial sum requests are sent.
const DefaultPartialSubject = "zeta.partial"

// PartialSumRequest asks for sum_{k=Start}^{End-1} k^(-s).
type PartialSumRequest struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Re    float64 `json:"re"`
	Im    float64 `json:"im"`
}

// PartialSumResponse carries the chunk sum or the reason it failed.
type PartialSumResponse struct {
	Re    float64 `json:"re"`
	Im    float64 `json:"im"`
	Error string  `json:"error,omitempty"`
}

// maxChunk bounds the work one request may ask for.
const maxChunk = 10_000_000

// HandlePartialSum computes the sum for one encoded request and returns the
// encoded response.
func HandlePartialSum(data []byte) []byte {
	var req PartialSumRequest
	var resp PartialSumResponse
	switch err := json.Unmarshal(data, &req); {
	case err != nil:
		resp.Error = fmt.Sprintf("bad request: %v", err)
	case req.Start < 1 || req.End < req.Start || req.End-req.Start > maxChunk:
		resp.Error = fmt.Sprintf("bad range [%d, %d)", req.Start, req.End)
	default:
		sum := zeta.PartialSum(complex(req.Re, req.Im), req.Start, req.End)
		resp.Re, resp.Im = real(sum), imag(sum)
	}
	out, _ := json.Marshal(resp)
	return out
}

// ServePartialSums answers partial sum requests on subject as a member of
// queue, so several workers share the load.
func ServePartialSums(nc *nats.Conn, subject, queue string, logger *logrus.Entry) (*nats.Subscription, error) {
	sub, err := nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		out := HandlePartialSum(msg.Data)
		if err := msg.Respond(out); err != nil {
			logger.WithError(err).Warn("respond failed")
			return
		}
		logger.WithField("bytes", len(msg.Data)).Debug("partial sum served")
	})
	if err != nil {
		return nil, fmt.Errorf("publish: subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// Requester is the part of *nats.Conn RemoteSum needs.
type Requester interface {
	Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error)
}

// RemoteSum returns a direct-sum function that farms chunks of chunkSize
// terms out to workers on subject and adds the answers. Any failed chunk
// fails the whole sum.
func RemoteSum(r Requester, subject string, chunkSize int, timeout time.Duration) zeta.SumFunc {
	if chunkSize <= 0 {
		chunkSize = zeta.DefaultChunkSize
	}
	return func(s complex128, start, end int) (complex128, error) {
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			total    complex128
			firstErr error
		)
		for lo := start; lo < end; lo += chunkSize {
			req := PartialSumRequest{Start: lo, End: min(lo+chunkSize, end), Re: real(s), Im: imag(s)}
			wg.Add(1)
			go func() {
				defer wg.Done()
				sum, err := requestChunk(r, subject, req, timeout)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				total += sum
			}()
		}
		wg.Wait()
		if firstErr != nil {
			return 0, firstErr
		}
		return total, nil
	}
}

func requestChunk(r Requester, subject string, req PartialSumRequest, timeout time.Duration) (complex128, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return 0, err
	}
	msg, err := r.Request(subject, data, timeout)
	if err != nil {
		return 0, fmt.Errorf("publish: chunk [%d, %d): %w", req.Start, req.End, err)
	}
	var resp PartialSumResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return 0, fmt.Errorf("publish: chunk [%d, %d): %w", req.Start, req.End, err)
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("publish: chunk [%d, %d): worker: %s", req.Start, req.End, resp.Error)
	}
	return complex(resp.Re, resp.Im), nil
}
