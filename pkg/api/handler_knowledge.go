package api

import (
	"io"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/archon-core/archon/ent/source"
	"github.com/archon-core/archon/pkg/documents"
	"github.com/archon-core/archon/pkg/retrieval"
)

// crawlHandler handles POST /api/knowledge-items/crawl.
func (s *Server) crawlHandler(c *echo.Context) error {
	if err := s.requirePermission(c, "knowledge", "knowledge:write", "*"); err != nil {
		return err
	}
	var req CrawlRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	progressID, err := s.documents.Crawl(c.Request().Context(), nil, req.URL, documents.Metadata{
		DisplayName:         req.URL,
		KnowledgeType:       source.KnowledgeType(knowledgeTypeOrDefault(req.KnowledgeType)),
		Tags:                req.Tags,
		ExtractCodeExamples: req.ExtractCodeExamples,
	}, false, req.SendToKB, subjectFrom(c).ID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, ProgressIDResponse{ProgressID: progressID})
}

// projectCrawlHandler handles POST /api/projects/:project_id/documents/crawl.
func (s *Server) projectCrawlHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "knowledge", "knowledge:write", projectID); err != nil {
		return err
	}
	var req CrawlRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	progressID, err := s.documents.Crawl(c.Request().Context(), &projectID, req.URL, documents.Metadata{
		DisplayName:         req.URL,
		KnowledgeType:       source.KnowledgeType(knowledgeTypeOrDefault(req.KnowledgeType)),
		Tags:                req.Tags,
		ExtractCodeExamples: req.ExtractCodeExamples,
	}, req.IsProjectPrivate, req.SendToKB, subjectFrom(c).ID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, ProgressIDResponse{ProgressID: progressID})
}

// uploadHandler handles POST /api/documents/upload.
func (s *Server) uploadHandler(c *echo.Context) error {
	if err := s.requirePermission(c, "knowledge", "knowledge:write", "*"); err != nil {
		return err
	}
	return s.handleUpload(c, nil)
}

// projectUploadHandler handles POST /api/projects/:project_id/documents/upload.
func (s *Server) projectUploadHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "knowledge", "knowledge:write", projectID); err != nil {
		return err
	}
	return s.handleUpload(c, &projectID)
}

func (s *Server) handleUpload(c *echo.Context, projectID *string) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}

	isProjectPrivate := c.FormValue("is_project_private") == "true"
	sendToKB := c.FormValue("send_to_kb") == "true"

	result, err := s.documents.Upload(c.Request().Context(), projectID, fileHeader.Filename, string(body), documents.Metadata{
		DisplayName:   fileHeader.Filename,
		KnowledgeType: source.KnowledgeType(knowledgeTypeOrDefault(c.FormValue("knowledge_type"))),
	}, isProjectPrivate, sendToKB)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, UploadResponse{
		SourceID:     result.SourceID,
		Filename:     fileHeader.Filename,
		ChunksStored: result.ChunksStored,
	})
}

// getProgressHandler handles GET /api/progress/:progress_id.
func (s *Server) getProgressHandler(c *echo.Context) error {
	handle := s.progress.Get(c.Param("progress_id"))
	if handle == nil {
		return echo.NewHTTPError(http.StatusNotFound, "progress not found")
	}
	return c.JSON(http.StatusOK, handle.Snapshot())
}

// cancelProgressHandler handles POST /api/progress/:progress_id/cancel.
func (s *Server) cancelProgressHandler(c *echo.Context) error {
	progressID := c.Param("progress_id")
	if s.pipelines == nil || !s.pipelines.CancelPipeline(progressID) {
		return echo.NewHTTPError(http.StatusNotFound, "no running pipeline for this progress_id")
	}
	return c.NoContent(http.StatusAccepted)
}

// searchHandler handles POST /api/knowledge/search.
func (s *Server) searchHandler(c *echo.Context) error {
	if err := s.requirePermission(c, "knowledge", "knowledge:read", "*"); err != nil {
		return err
	}
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	resp, err := s.retrieval.Search(c.Request().Context(), req.Query, retrieval.Filters{
		SourceID:      req.SourceID,
		KnowledgeType: req.KnowledgeType,
		ProjectID:     req.ProjectID,
		Tags:          req.Tags,
	}, req.MatchCount)
	if err != nil {
		return mapServiceError(err)
	}

	dto := SearchResponse{Degraded: resp.Degraded, Results: make([]SearchResultDTO, len(resp.Results))}
	for i, r := range resp.Results {
		dto.Results[i] = SearchResultDTO{
			PageID: r.PageID, SourceID: r.SourceID, URL: r.URL,
			ChunkNumber: r.ChunkNumber, Content: r.Content, Score: r.Score,
			MatchType: string(r.MatchType),
		}
	}
	return c.JSON(http.StatusOK, dto)
}

func knowledgeTypeOrDefault(kt string) string {
	if kt == "" {
		return "technical"
	}
	return kt
}
