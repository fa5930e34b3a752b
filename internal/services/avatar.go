package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "image/color"
  "math/rand"
  "os"
  "strings"
  "time"

  "github.com/disintegration/imaging"
  "github.com/fogleman/gg"
  "github.com/golang/freetype/truetype"
  "golang.org/x/image/font"
  "gorm.io/gorm"

  "github.com/amitai-labs/amitai-backend/internal/logger"
  "github.com/amitai-labs/amitai-backend/internal/types"
)

type AvatarService interface {
  CreateAndUploadUserAvatar(ctx context.Context, tx *gorm.DB, user *types.User) error
  GenerateUserAvatar(ctx context.Context, tx *gorm.DB, user *types.User) (bytes.Buffer, error)
}

type avatarService struct {
  db            *gorm.DB
  log           *logger.Logger
  bucketService BucketService
  bgColors      []color.NRGBA
  fontFace      font.Face
}

var defaultAvatarColors = []color.NRGBA{
  {R: 239, G: 83, B: 80, A: 255},
  {R: 171, G: 71, B: 188, A: 255},
  {R: 92, G: 107, B: 192, A: 255},
  {R: 41, G: 182, B: 246, A: 255},
  {R: 38, G: 166, B: 154, A: 255},
  {R: 255, G: 167, B: 38, A: 255},
}

func NewAvatarService(db *gorm.DB, log *logger.Logger, bucketService BucketService) (AvatarService, error) {
  serviceLog := log.With("service", "AvatarService")

  rand.Seed(time.Now().UnixNano())

  //1) Get Avatar Colors
  bgColors := defaultAvatarColors
  colorsJSONPath := os.Getenv("AVATAR_COLORS_JSON_PATH")
  if colorsJSONPath != "" {
    serviceLog.Info("Loading avatar colors from JSON file", "path", colorsJSONPath)
    loaded, err := loadColorsFromFile(colorsJSONPath)
    if err != nil {
      return nil, fmt.Errorf("could not load avatar colors: %w", err)
    }
    bgColors = loaded
  }

  //2) Get Font
  fontPath := os.Getenv("AVATAR_FONT")
  if fontPath == "" {
    return nil, fmt.Errorf("env var AVATAR_FONT is empty")
  }
  serviceLog.Info("Loading avatar font from TTF file", "font", fontPath)
  face, err := loadFontFace(fontPath, 206)
  if err != nil {
    return nil, fmt.Errorf("could not load avatar font: %w", err)
  }

  return &avatarService{
    db:            db,
    log:           serviceLog,
    bucketService: bucketService,
    bgColors:      bgColors,
    fontFace:      face,
  }, nil
}

func (as *avatarService) CreateAndUploadUserAvatar(ctx context.Context, tx *gorm.DB, user *types.User) error {
  buf, err := as.GenerateUserAvatar(ctx, tx, user)
  if err != nil {
    return err
  }
  bucketKey := fmt.Sprintf("user_avatars/%s.png", user.ID.String())
  if err := as.bucketService.UploadFile(ctx, tx, bucketKey, bytes.NewReader(buf.Bytes())); err != nil {
    return fmt.Errorf("Failed to upload user avatar: %w", err)
  }
  if user.AvatarBucketKey != bucketKey {
    user.AvatarBucketKey = bucketKey
  }
  finalURL := as.bucketService.GetPublicURL(bucketKey)
  if user.AvatarURL != finalURL {
    user.AvatarURL = finalURL
  }
  return nil
}

func (as *avatarService) GenerateUserAvatar(ctx context.Context, tx *gorm.DB, user *types.User) (bytes.Buffer, error) {
  const size = 512

  // 1) Create drawing context
  dc := gg.NewContext(size, size)

  // 2) Circular mask so final image is round
  dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
  dc.Clip()

  // 3) Solid background color
  base := as.bgColors[rand.Intn(len(as.bgColors))]
  dc.SetColor(base)
  dc.DrawRectangle(0, 0, float64(size), float64(size))
  dc.Fill()

  // 4) Compute user initials
  initials := computeInitials(user.Name)

  // 5) Set font & measure text
  dc.SetFontFace(as.fontFace)
  tw, th := dc.MeasureString(initials)
  cx, cy := float64(size)/2, float64(size)/2

  // 6) Draw main white text
  dc.SetColor(color.White)
  dc.DrawString(initials, cx-(tw/2)+5, cy+(th/2)-10)

  // 7) Downscale and export to PNG
  scaled := imaging.Fit(dc.Image(), 256, 256, imaging.Lanczos)
  var buf bytes.Buffer
  if err := imaging.Encode(&buf, scaled, imaging.PNG); err != nil {
    return buf, fmt.Errorf("failed to encode PNG: %w", err)
  }
  return buf, nil
}

//----------------------------------------------------------------------------------------
// Helpers
//----------------------------------------------------------------------------------------
func computeInitials(name string) string {
  words := strings.Fields(name)
  switch {
  case len(words) >= 2:
    return strings.ToUpper(words[0][:1]) + strings.ToUpper(words[1][:1])
  case len(words) == 1:
    return strings.ToUpper(words[0][:1])
  default:
    return "?"
  }
}

func loadColorsFromFile(jsonPath string) ([]color.NRGBA, error) {
  data, err := os.ReadFile(jsonPath)
  if err != nil {
    return nil, fmt.Errorf("read file error: %w", err)
  }
  var colors []color.NRGBA
  if err := json.Unmarshal(data, &colors); err != nil {
    return nil, fmt.Errorf("json unmarshal error: %w", err)
  }
  return colors, nil
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
  fontBytes, err := os.ReadFile(fontPath)
  if err != nil {
    return nil, fmt.Errorf("failed to read font file: %w", err)
  }
  parsedFont, err := truetype.Parse(fontBytes)
  if err != nil {
    return nil, fmt.Errorf("failed to parse TTF: %w", err)
  }
  face := truetype.NewFace(parsedFont, &truetype.Options{
    Size:    size,
    DPI:     72,
    Hinting: font.HintingNone,
  })
  return face, nil
}
