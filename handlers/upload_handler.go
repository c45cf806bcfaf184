package handlers

import (
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v2"
)

var uploadFolders = map[string]string{
	"thumbnail": "course_academy/thumbnails",
	"lesson":    "course_academy/lessons",
	"product":   "course_academy/products",
}

type UploadSignature struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
}

// signUpload signs a direct browser upload into folder. The API secret never
// leaves the server.
func signUpload(cloudinaryURL, folder string, now time.Time) (*UploadSignature, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(cloudinaryURL)
	if err != nil {
		return nil, err
	}
	secret, ok := parsed.User.Password()
	if !ok || secret == "" {
		return nil, errors.New("cloudinary url carries no api secret")
	}

	params, err := api.StructToParams(uploader.UploadParams{Folder: folder})
	if err != nil {
		return nil, err
	}
	params.Set("timestamp", strconv.FormatInt(now.Unix(), 10))

	signature, err := api.SignParameters(params, secret)
	if err != nil {
		return nil, err
	}
	return &UploadSignature{
		Signature: signature,
		Timestamp: now.Unix(),
		APIKey:    cld.Config.Cloud.APIKey,
		CloudName: cld.Config.Cloud.CloudName,
		Folder:    folder,
	}, nil
}

// GenerateUploadSignature lets the admin UI upload thumbnails and lesson
// videos straight to Cloudinary.
func (h *Handler) GenerateUploadSignature(c *fiber.Ctx) error {
	folder, ok := uploadFolders[c.Query("kind", "thumbnail")]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown upload kind"})
	}

	sig, err := signUpload(h.cfg.CloudinaryURL, folder, time.Now())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sig)
}
