package httpclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opendata-sync/catalog-sync/internal/httpclient"
)

var _ = Describe("DefaultClient", func() {
	var (
		ctx        context.Context
		mockServer *httptest.Server
		hits       atomic.Int32
	)

	BeforeEach(func() {
		ctx = context.Background()
		hits.Store(0)
	})

	AfterEach(func() {
		if mockServer != nil {
			mockServer.Close()
		}
	})

	Context("successful responses", func() {
		BeforeEach(func() {
			mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				Expect(r.Header.Get("User-Agent")).To(Equal(httpclient.UserAgent))
				w.Header().Set("X-Accept", r.Header.Get("Accept"))
				_, _ = w.Write([]byte("a,b\n1,2"))
			}))
		})

		It("returns the body", func() {
			client := httpclient.NewDefaultClient(0)
			body, err := client.Get(ctx, mockServer.URL)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("a,b\n1,2"))
		})

		It("honours a rate limit without failing", func() {
			client := httpclient.NewDefaultClient(time.Second, httpclient.WithRateLimit(100, 1))
			for range 3 {
				_, err := client.Get(ctx, mockServer.URL)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(hits.Load()).To(Equal(int32(3)))
		})

		It("stops waiting for the limiter when the context is done", func() {
			client := httpclient.NewDefaultClient(time.Second, httpclient.WithRateLimit(0.001, 1))
			_, err := client.Get(ctx, mockServer.URL)
			Expect(err).NotTo(HaveOccurred())

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err = client.Get(cancelled, mockServer.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("rate limiter"))
		})
	})

	Context("error responses", func() {
		BeforeEach(func() {
			mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				hits.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
		})

		It("returns an HTTPError", func() {
			client := httpclient.NewDefaultClient(0)
			_, err := client.Get(ctx, mockServer.URL)
			Expect(err).To(HaveOccurred())

			var httpErr *httpclient.HTTPError
			Expect(errors.As(err, &httpErr)).To(BeTrue())
			Expect(httpErr.StatusCode).To(Equal(http.StatusServiceUnavailable))
			Expect(httpErr.Temporary()).To(BeTrue())
		})

		It("opens the circuit breaker after consecutive failures", func() {
			client := httpclient.NewDefaultClient(0,
				httpclient.WithCircuitBreaker("resources", 2, time.Minute))

			for range 2 {
				_, err := client.Get(ctx, mockServer.URL)
				Expect(err).To(HaveOccurred())
			}

			_, err := client.Get(ctx, mockServer.URL)
			Expect(errors.Is(err, httpclient.ErrCircuitOpen)).To(BeTrue())
			Expect(hits.Load()).To(Equal(int32(2)))
		})
	})
})

var _ = Describe("HTTPError", func() {
	It("formats the message", func() {
		err := httpclient.NewHTTPError(500, "http://api.example.com/v1/data", "Internal Server Error")
		Expect(err.Error()).To(Equal("HTTP 500 for URL http://api.example.com/v1/data: Internal Server Error"))
	})

	It("classifies temporary failures", func() {
		Expect((&httpclient.HTTPError{StatusCode: 429}).Temporary()).To(BeTrue())
		Expect((&httpclient.HTTPError{StatusCode: 502}).Temporary()).To(BeTrue())
		Expect((&httpclient.HTTPError{StatusCode: 404}).Temporary()).To(BeFalse())
	})
})
