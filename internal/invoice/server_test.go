package invoice

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/ozbill/invoice-ocr/internal/extract"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		service = NewService(db, newMockReader(), newMockStorage(), extract.DefaultPrefillThreshold)
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleListInvoices", func() {
		When("no invoices exist", func() {
			It("should return an empty array, not null", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/invoices")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
			})
		})

		When("invoices exist", func() {
			BeforeEach(func() {
				db.invoices["id1"] = &Invoice{ID: "id1"}
				db.invoices["id2"] = &Invoice{ID: "id2"}
			})

			It("should return them all", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/invoices")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var invoices []*Invoice
				Expect(json.NewDecoder(resp.Body).Decode(&invoices)).To(Succeed())
				Expect(invoices).To(HaveLen(2))
			})
		})
	})

	Describe("handleUploadInvoice", func() {
		makeUpload := func(filename, fileContents string) (*http.Request, error) {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile("file", filename)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte(fileContents))
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/invoices", &buf)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", writer.FormDataContentType())
			return req, nil
		}

		It("should create the invoice with extracted fields", func() {
			req, err := makeUpload("invoice.txt", "fake document data")
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			var invoice Invoice
			Expect(json.NewDecoder(resp.Body).Decode(&invoice)).To(Succeed())
			Expect(invoice.ID).NotTo(BeEmpty())
			Expect(invoice.Fields.InvoiceNumber.Value).To(Equal("INV-10234"))
			Expect(invoice.Prefill.CustomerName).To(Equal("Acme Supplies Pty Ltd"))
		})

		It("should reject a request without a file", func() {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			Expect(writer.Close()).To(Succeed())
			req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/invoices", &buf)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", writer.FormDataContentType())

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleExtractText", func() {
		It("should extract fields from the posted text", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/extract", "text/plain",
				strings.NewReader("Invoice No: INV-10234\n"))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var parsed struct {
				Fields  extract.Result        `json:"fields"`
				Prefill extract.PrefillValues `json:"prefill"`
			}
			Expect(json.NewDecoder(resp.Body).Decode(&parsed)).To(Succeed())
			Expect(parsed.Fields.InvoiceNumber.Value).To(Equal("INV-10234"))
			Expect(parsed.Fields.InvoiceNumber.Confidence).To(Equal(83.0))
			Expect(parsed.Prefill.InvoiceNumber).To(Equal("INV-10234"))
		})

		It("should honor the base_confidence override", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/extract?base_confidence=40", "text/plain",
				strings.NewReader("Invoice No: INV-10234\n"))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			var parsed struct {
				Fields  extract.Result        `json:"fields"`
				Prefill extract.PrefillValues `json:"prefill"`
			}
			Expect(json.NewDecoder(resp.Body).Decode(&parsed)).To(Succeed())
			Expect(parsed.Fields.InvoiceNumber.Confidence).To(Equal(48.0))
			Expect(parsed.Prefill.InvoiceNumber).To(BeEmpty())
		})

		It("should reject an out-of-range base_confidence", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/extract?base_confidence=150", "text/plain",
				strings.NewReader("anything"))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleGetInvoice", func() {
		It("should return 404 for an unknown invoice", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/invoices/missing")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		When("the invoice exists", func() {
			BeforeEach(func() {
				db.invoices["inv-1"] = &Invoice{ID: "inv-1", Status: "approved"}
			})

			It("should return it", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/invoices/inv-1")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var invoice Invoice
				Expect(json.NewDecoder(resp.Body).Decode(&invoice)).To(Succeed())
				Expect(invoice.Status).To(Equal("approved"))
			})
		})
	})

	Describe("handleUpdateStatus", func() {
		BeforeEach(func() {
			db.invoices["inv-1"] = &Invoice{ID: "inv-1"}
		})

		It("should update the status", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/invoices/inv-1/status", "application/json",
				strings.NewReader(`{"status": "paid"}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var invoice Invoice
			Expect(json.NewDecoder(resp.Body).Decode(&invoice)).To(Succeed())
			Expect(invoice.Status).To(Equal("paid"))
		})

		It("should reject a malformed body", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/invoices/inv-1/status", "application/json",
				strings.NewReader("{not json"))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleDeleteInvoice", func() {
		BeforeEach(func() {
			db.invoices["inv-1"] = &Invoice{ID: "inv-1", Filename: "inv-1_invoice.pdf"}
		})

		It("should return 204 on success", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/invoices/inv-1", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "billing", Password: "secret"}
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer()
		})

		It("should reject requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/invoices")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("should accept requests with valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/invoices", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("billing:secret")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should reject requests with wrong credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/invoices", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("billing:wrong")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})
})
