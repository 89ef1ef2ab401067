package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"vidsense/logger"
	"vidsense/services"
	"vidsense/utils"

	"github.com/gin-gonic/gin"
)

func UploadVideo(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "failed to get video file")
		return
	}
	defer file.Close()

	video, err := getServices().Video.Upload(c.Request.Context(), requester(c), file, header)
	if respondServiceError(c, err) {
		return
	}

	utils.SuccessWithMessage(c, "video uploaded successfully", gin.H{
		"video_id": video.ID,
	})
}

func ListVideos(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	out, err := getServices().Video.List(c.Request.Context(), requester(c), services.ListVideosOptions{
		Status:      c.Query("status"),
		Sensitivity: c.Query("sensitivity"),
		Page:        page,
		PageSize:    pageSize,
	})
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, out)
}

func GetVideo(c *gin.Context) {
	video, err := getServices().Video.Get(c.Request.Context(), requester(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}

	utils.Success(c, video)
}

// StreamVideo serves the processed file, honoring single byte-range
// requests so players can seek without downloading the whole file.
func StreamVideo(c *gin.Context) {
	info, err := getServices().Video.GetStreamInfo(c.Request.Context(), requester(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}

	rangeHeader := c.GetHeader("Range")
	if rangeHeader == "" {
		c.Header("Content-Type", info.ContentType)
		c.Header("Accept-Ranges", "bytes")
		c.File(info.AbsPath)
		return
	}

	byteRange, err := services.ParseByteRange(rangeHeader, info.FileSize)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid range header")
		return
	}

	src, err := os.Open(info.AbsPath)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to open video file")
		return
	}
	defer src.Close()

	c.Header("Content-Range", byteRange.ContentRange(info.FileSize))
	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Length", fmt.Sprintf("%d", byteRange.Length()))
	c.Header("Content-Type", info.ContentType)
	c.Status(http.StatusPartialContent)

	if _, err := services.CopyRange(c.Writer, src, byteRange); err != nil {
		// Headers are gone; all we can do is note the broken stream.
		logger.Debugf("stream of video %s aborted: %v", info.Video.ID, err)
	}
}

func DeleteVideo(c *gin.Context) {
	err := getServices().Video.Delete(c.Request.Context(), requester(c), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}

	utils.SuccessWithMessage(c, "video deleted successfully", nil)
}
