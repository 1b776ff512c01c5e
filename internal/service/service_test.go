package service_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/valyala/fasthttp"

	"github.com/edgecomet/pagesaver/internal/command"
	"github.com/edgecomet/pagesaver/internal/service"
)

var _ = Describe("Command service", func() {
	Context("before any page is loaded", func() {
		It("answers ping and health", func() {
			res := testEnv.Command(command.Request{Action: command.ActionPing})
			Expect(res.StatusCode).To(Equal(fasthttp.StatusOK))
			Expect(*res.Body.Active).To(BeTrue())

			health := testEnv.Health()
			Expect(health.Status).To(Equal("ok"))
			Expect(health.PageLoaded).To(BeFalse())
		})

		It("rejects saves with NoPage", func() {
			res := testEnv.Command(command.Request{Action: command.ActionSaveFullPage})
			Expect(res.StatusCode).To(Equal(fasthttp.StatusConflict))
			Expect(res.Body.Code).To(Equal(command.CodeNoPage))
			Expect(*res.Body.Success).To(BeFalse())
		})
	})

	Context("unknown input", func() {
		It("reports UnknownAction with the action name", func() {
			res := testEnv.Command(command.Request{Action: "frobnicate"})
			Expect(res.StatusCode).To(Equal(fasthttp.StatusBadRequest))
			Expect(res.Body.Code).To(Equal(command.CodeUnknownAction))
			Expect(res.Body.Error).To(Equal("Unknown action: frobnicate"))
		})

		It("rejects malformed JSON", func() {
			status, _ := testEnv.do(fasthttp.MethodPost, "/command", []byte("{"))
			Expect(status).To(Equal(fasthttp.StatusBadRequest))
		})

		It("returns 404 for unknown routes", func() {
			status, raw := testEnv.do(fasthttp.MethodGet, "/nowhere", nil)
			Expect(status).To(Equal(fasthttp.StatusNotFound))
			Expect(string(raw)).To(MatchJSON(`{"success":false,"error":"Not Found"}`))
		})

		It("returns 405 for a known route with the wrong method", func() {
			status, _ := testEnv.do(fasthttp.MethodGet, service.PathCommand, nil)
			Expect(status).To(Equal(fasthttp.StatusMethodNotAllowed))
		})
	})

	Context("with a captured page", func() {
		BeforeEach(func() {
			res := testEnv.Command(command.Request{Action: command.ActionNavigate, URL: testEnv.Origin.URL + "/"})
			Expect(res.StatusCode).To(Equal(fasthttp.StatusOK))
			Expect(testEnv.Health().PageLoaded).To(BeTrue())
		})

		It("saves the full page through the primary tier", func() {
			By("Saving the full page")
			res := testEnv.Command(command.Request{Action: command.ActionSaveFullPage})
			Expect(res.StatusCode).To(Equal(fasthttp.StatusOK))
			Expect(*res.Body.Success).To(BeTrue())
			Expect(res.Body.Filename).To(Equal("Field_Notes_full.html"))
			Expect(res.Body.Tier).To(Equal("download"))
			Expect(res.Body.Guessed).To(BeFalse())

			By("Verifying the written document")
			Expect(res.Body.Path).To(Equal(filepath.Join(testEnv.DownloadsDir, "Field_Notes_full.html")))
			data, err := os.ReadFile(res.Body.Path)
			Expect(err).NotTo(HaveOccurred())
			out := string(data)
			Expect(out).To(HavePrefix("<!DOCTYPE html>"))
			Expect(out).To(ContainSubstring("data:image/"))
			Expect(out).To(ContainSubstring("p { color: red; }"))
			Expect(out).NotTo(ContainSubstring("googletagmanager"))
			Expect(out).NotTo(ContainSubstring("drift-widget"))
		})

		It("uniquifies repeated saves", func() {
			first := testEnv.Command(command.Request{Action: command.ActionSaveFullPage})
			second := testEnv.Command(command.Request{Action: command.ActionSaveFullPage})
			Expect(first.Body.Path).NotTo(Equal(second.Body.Path))
			Expect(second.Body.Path).To(HaveSuffix("Field_Notes_full (1).html"))
		})

		It("fails saveSelection with EmptySelection", func() {
			res := testEnv.Command(command.Request{Action: command.ActionSaveSelection})
			Expect(res.StatusCode).To(Equal(fasthttp.StatusUnprocessableEntity))
			Expect(res.Body.Code).To(Equal(command.CodeEmptySelection))

			entries, err := os.ReadDir(testEnv.DownloadsDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("saves a selection made by selector", func() {
			By("Enabling selection mode")
			res := testEnv.Command(command.Request{Action: command.ActionToggleSelectMode, Active: boolPtr(true)})
			Expect(*res.Body.Success).To(BeTrue())
			Expect(*testEnv.Command(command.Request{Action: command.ActionGetSelectMode}).Body.Active).To(BeTrue())

			By("Selecting the article")
			res = testEnv.Command(command.Request{Action: command.ActionClick, Selector: "#article"})
			Expect(*res.Body.Handled).To(BeTrue())
			Expect(*res.Body.Selected).To(Equal(1))

			By("Saving the selection")
			res = testEnv.Command(command.Request{Action: command.ActionSaveSelection})
			Expect(res.StatusCode).To(Equal(fasthttp.StatusOK))
			Expect(res.Body.Filename).To(Equal("Field_Notes_selection.html"))

			data, err := os.ReadFile(res.Body.Path)
			Expect(err).NotTo(HaveOccurred())
			out := string(data)
			Expect(out).To(ContainSubstring(`class="selected-content-item"`))
			Expect(out).To(ContainSubstring("Observations"))
			Expect(out).To(ContainSubstring("data:image/"))
			Expect(out).NotTo(ContainSubstring("Links"))
			Expect(out).NotTo(ContainSubstring("wcs-selected"))

			By("Clearing the selection")
			res = testEnv.Command(command.Request{Action: command.ActionClearSelection})
			Expect(*res.Body.Success).To(BeTrue())
			res = testEnv.Command(command.Request{Action: command.ActionSaveSelection})
			Expect(res.Body.Code).To(Equal(command.CodeEmptySelection))
		})

		It("runs async saves in the background", func() {
			res := testEnv.Command(command.Request{Action: command.ActionSaveFullPage, Async: true})
			Expect(res.StatusCode).To(Equal(fasthttp.StatusOK))
			Expect(res.Body.Pending).To(BeTrue())

			Eventually(func() string {
				return filepath.Join(testEnv.DownloadsDir, "Field_Notes_full.html")
			}).Should(BeAnExistingFile())
		})
	})
})
