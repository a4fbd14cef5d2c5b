package httpkit

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/buyukakyuz/bpx/internal/httpkit/internal/filebuffer"
	"github.com/buyukakyuz/bpx/internal/httpkit/internal/filecache"
	"github.com/buyukakyuz/bpx/internal/httpkit/internal/radix"
)

// route represents a route with a pattern, method, and handlers.
type route struct {
	Pattern    string
	Method     string
	Handlers   []Handler
	Regex      *regexp.Regexp
	HasParams  bool     // Precomputed flag indicating if the route has parameters
	ParamCount int      // Precomputed count of parameters in the route
	ParamNames []string // Precomputed parameter names
}

// middlewareStackPool is a pool of middleware stacks for reuse
// This pool helps reduce memory allocations by reusing middleware stacks
// instead of creating new ones for each request.
var middlewareStackPool = sync.Pool{
	New: func() interface{} {
		// Create a middleware stack with a reasonable initial capacity
		return make([]MiddlewareFunc, 0, 16)
	},
}

// routeSegmentPool is a pool for route segments to reduce allocations
var routeSegmentPool = sync.Pool{
	New: func() interface{} {
		return make([]string, 0, 8)
	},
}

// stringBuilderPool is a pool for string builders to reduce allocations
var stringBuilderPool = sync.Pool{
	New: func() interface{} {
		return new(strings.Builder)
	},
}

// allowedMethodsPool is a pool for allowed methods slices to reduce allocations
var allowedMethodsPool = sync.Pool{
	New: func() interface{} {
		return make([]string, 0, 8)
	},
}

// Router is an HTTP request router.
type Router struct {
	Routes          []route
	routesByMethod  map[string][]route     // Routes indexed by method for faster lookup
	routeTrees      map[string]*radix.Tree // Radix trees indexed by method for faster lookup
	middlewareFuncs []MiddlewareFunc
	NotFound        Handler
}

// NewRouter creates a new Router.
func NewRouter() *Router {
	return &Router{
		Routes:          []route{},
		routesByMethod:  make(map[string][]route),
		routeTrees:      make(map[string]*radix.Tree),
		middlewareFuncs: []MiddlewareFunc{},
		NotFound: func(c *Ctx) {
			c.Status(StatusNotFound)
			c.String("404 page not found")
		},
	}
}

// Use adds middleware to the router.
// It accepts middleware functions that take a context parameter.
func (r *Router) Use(middleware ...interface{}) {
	for _, m := range middleware {
		switch m := m.(type) {
		case Middleware:
			r.middlewareFuncs = append(r.middlewareFuncs, m)
		case func(*Ctx):
			r.middlewareFuncs = append(r.middlewareFuncs, m)
		default:
			panic("middleware must be a function that takes a *Ctx parameter")
		}
	}
}

// Handle registers a new route with the given pattern and method.
func (r *Router) Handle(pattern, method string, handlers ...Handler) *Router {
	// Convert URL parameters like :id and wildcards * to regex patterns
	var regexPattern string

	if strings.Contains(pattern, ":") || strings.Contains(pattern, "*") {
		// Get a string builder from the pool
		sb := stringBuilderPool.Get().(*strings.Builder)
		sb.Reset()
		defer stringBuilderPool.Put(sb)

		// Get a segments slice from the pool
		segments := routeSegmentPool.Get().([]string)
		segments = segments[:0]
		defer routeSegmentPool.Put(segments)

		// Split the pattern into segments
		start := 0
		for i := 0; i < len(pattern); i++ {
			if pattern[i] == '/' {
				if i > start {
					segments = append(segments, pattern[start:i])
				}
				start = i + 1
			}
		}
		if start < len(pattern) {
			segments = append(segments, pattern[start:])
		}

		// Build the regex pattern
		sb.WriteString("^")
		// Add leading slash
		sb.WriteString("/")
		for i, segment := range segments {
			if i > 0 {
				sb.WriteString("/")
			}
			if len(segment) > 0 && segment[0] == ':' {
				// Parameter segment like :id
				sb.WriteString("([^/]+)")
			} else if segment == "*" {
				// Wildcard segment - matches everything including slashes
				sb.WriteString("(.*)")
			} else {
				// Regular segment - escape special regex characters
				escaped := regexp.QuoteMeta(segment)
				sb.WriteString(escaped)
			}
		}
		sb.WriteString("$")
		regexPattern = sb.String()
	} else {
		// Simple case, just add ^ and $ and escape special regex characters
		regexPattern = "^" + regexp.QuoteMeta(pattern) + "$"
	}

	// Precompute parameter information
	hasParams := strings.Contains(pattern, ":")
	paramCount := strings.Count(pattern, ":")

	// Extract parameter names
	var paramNames []string
	if hasParams {
		paramNames = make([]string, 0, paramCount)
		start := 0
		for i := 0; i < len(pattern); i++ {
			if pattern[i] == ':' {
				// Found a parameter
				start = i + 1 // Skip the colon

				// Find the end of the parameter (next slash or end of string)
				end := strings.IndexByte(pattern[start:], '/')
				if end == -1 {
					// Parameter extends to the end of the pattern
					paramNames = append(paramNames, pattern[start:])
				} else {
					// Parameter ends at a slash
					paramNames = append(paramNames, pattern[start:start+end])
				}
			}
		}
	}

	regex := regexp.MustCompile(regexPattern)
	newRoute := route{
		Pattern:    pattern,
		Method:     method,
		Handlers:   handlers,
		Regex:      regex,
		HasParams:  hasParams,
		ParamCount: paramCount,
		ParamNames: paramNames,
	}

	// Add to the main routes slice
	r.Routes = append(r.Routes, newRoute)

	// Add to the method-specific routes map for faster lookup
	r.routesByMethod[method] = append(r.routesByMethod[method], newRoute)

	// For HEAD requests, we can also use GET handlers (HTTP spec)
	if method == MethodGet {
		r.routesByMethod[MethodHead] = append(r.routesByMethod[MethodHead], newRoute)
	}

	// Add to the radix tree for faster lookup
	// Get or create the tree for this method
	tree, exists := r.routeTrees[method]
	if !exists {
		tree = radix.NewTree()
		r.routeTrees[method] = tree
	}

	// Insert the route into the tree
	tree.Insert(pattern, method, handlers)

	// For HEAD requests, we can also use GET handlers (HTTP spec)
	if method == MethodGet {
		headTree, exists := r.routeTrees[MethodHead]
		if !exists {
			headTree = radix.NewTree()
			r.routeTrees[MethodHead] = headTree
		}
		headTree.Insert(pattern, MethodHead, handlers)
	}

	return r
}

// HandleStatic registers a new route for serving static files.
func (r *Router) HandleStatic(prefix, root string, config ...Static) *Router {
	// Use default config if none provided
	cfg := DefaultStaticConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	// Clean up the prefix to ensure it ends with /*
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	pattern := prefix + "*"

	// Create the static file handler
	handler := createStaticHandler(prefix, root, cfg)

	// Register the route
	return r.Handle(pattern, MethodGet, handler)
}

// createStaticHandler creates a handler function for serving static files
func createStaticHandler(prefix, root string, config Static) Handler {
	// Ensure root path is absolute and clean
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	// Pre-cache all files if in-memory caching is enabled
	if config.InMemoryCache {
		// Don't block the handler creation
		go func() {
			cache := getCacheInstance(config.MaxCacheSize, config.MaxCacheItems)

			// Try to preload the index file first
			if config.Index != "" {
				indexPath := filepath.Join(absRoot, config.Index)
				if fileInfo, err := os.Stat(indexPath); err == nil && !fileInfo.IsDir() {
					preloadFileToCache(indexPath, fileInfo, cache)
				}
			}

			// Walk the directory and pre-cache all files
			// Use a separate goroutine to avoid blocking and limit concurrency
			go func() {
				// Create a semaphore to limit concurrent file loading
				sem := make(chan struct{}, 10) // Max 10 concurrent file loads

				filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
					if err != nil || info.IsDir() {
						return nil // Skip directories and errors
					}

					// Skip files larger than 5MB to avoid caching very large files
					if info.Size() > 5*1024*1024 {
						return nil
					}

					// Acquire semaphore
					sem <- struct{}{}

					// Pre-cache in a separate goroutine
					go func(filePath string, fileInfo os.FileInfo) {
						defer func() { <-sem }() // Release semaphore when done
						preloadFileToCache(filePath, fileInfo, cache)
					}(path, info)

					return nil
				})
			}()
		}()
	}

	return func(c *Ctx) {
		// Skip if Next function returns true
		if config.Next != nil && config.Next(c) {
			c.Next()
			return
		}

		// Get the file path from the URL
		filePath := strings.TrimPrefix(c.Path(), strings.TrimSuffix(prefix, "/"))

		// Remove leading slash if present
		filePath = strings.TrimPrefix(filePath, "/")

		if filePath == "" {
			filePath = config.Index
		}

		// Clean the file path and join with root
		filePath = filepath.Clean(filePath)
		fullPath := filepath.Join(absRoot, filePath)

		// Get file info first to check if file exists
		fileInfo, err := os.Stat(fullPath)
		if err != nil {
			if os.IsNotExist(err) {
				c.Status(StatusNotFound)
				c.String("File not found")
				return
			}
			c.Status(StatusInternalServerError)
			c.String("Internal Server Error")
			return
		}

		// Security check: ensure the file path is within the root directory
		// Only perform symlink resolution if the file exists
		resolvedFullPath, err := filepath.EvalSymlinks(fullPath)
		if err != nil || !isSubPath(absRoot, resolvedFullPath) {
			c.Status(StatusForbidden)
			c.String("Forbidden")
			return
		}

		// Handle directory requests
		if fileInfo.IsDir() {
			// Try to serve index file only if Index is specified
			if config.Index != "" {
				indexPath := filepath.Join(fullPath, config.Index)
				if indexInfo, err := os.Stat(indexPath); err == nil && !indexInfo.IsDir() {
					fullPath = indexPath
					fileInfo = indexInfo
				} else if config.Browse {
					// Serve directory listing
					serveDirectoryListing(c, fullPath, filePath, config)
					return
				} else {
					c.Status(StatusForbidden)
					c.String("Directory listing is disabled")
					return
				}
			} else if config.Browse {
				// No index file specified, serve directory listing
				serveDirectoryListing(c, fullPath, filePath, config)
				return
			} else {
				c.Status(StatusForbidden)
				c.String("Directory listing is disabled")
				return
			}
		}

		// Handle byte range requests
		if config.ByteRange && c.Get("Range") != "" {
			serveFileWithRange(c, fullPath, fileInfo, config)
			return
		}

		// Serve the file
		serveFile(c, fullPath, fileInfo, config)
	}
}

// cacheMap stores cache instances by their configuration to enable reuse
var cacheMap = struct {
	sync.RWMutex
	instances map[string]*filecache.Cache
}{
	instances: make(map[string]*filecache.Cache),
}

// fdCacheMap stores file descriptor cache instances by their configuration
var fdCacheMap = struct {
	sync.RWMutex
	instances map[string]*filecache.FDCache
}{
	instances: make(map[string]*filecache.FDCache),
}

// preloadFileToCache loads a file into the cache
func preloadFileToCache(filePath string, fileInfo os.FileInfo, cache *filecache.Cache) {
	// Skip if file is already in cache
	if _, exists := cache.Get(filePath); exists {
		return
	}

	// Open the file
	file, err := os.Open(filePath)
	if err != nil {
		return
	}
	defer file.Close()

	// Get a buffer from the pool
	buf := filebuffer.GetBuffer()
	defer filebuffer.ReleaseBuffer(buf)

	// Reset the buffer to ensure it's empty
	buf.Reset()

	// Get a read buffer from the pool
	readBuf := filebuffer.GetReadBuffer()
	defer filebuffer.ReleaseReadBuffer(readBuf)

	// Read the file in chunks to avoid large allocations
	for {
		n, err := file.Read(readBuf)
		if n > 0 {
			buf.Write(readBuf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return
		}
	}

	// Determine content type using the cache
	contentType := getMimeType(filepath.Ext(filePath))

	// Cache the file content directly from buffer
	// The Set method will make a copy of the data
	cache.Set(filePath, buf.Bytes(), fileInfo.ModTime(), fileInfo.Size(), contentType)
}

// getCacheInstance returns a cache instance for the given configuration
func getCacheInstance(size int64, items int) *filecache.Cache {
	// Use default cache if no custom size or items
	if size <= 0 && items <= 0 {
		return filecache.DefaultCache
	}

	// Normalize values
	if size <= 0 {
		size = 100 * 1024 * 1024 // Default 100MB
	}
	if items <= 0 {
		items = 1000 // Default 1000 items
	}

	// Create a key for the cache configuration
	key := fmt.Sprintf("%d:%d", size, items)

	// Check if we already have a cache instance for this configuration
	cacheMap.RLock()
	cache, exists := cacheMap.instances[key]
	cacheMap.RUnlock()

	if exists {
		return cache
	}

	// Create a new cache instance
	cache = filecache.NewCache(size, items)

	// Store it for future use
	cacheMap.Lock()
	cacheMap.instances[key] = cache
	cacheMap.Unlock()

	return cache
}

// getFDCacheInstance returns a file descriptor cache instance for the given configuration
func getFDCacheInstance(maxSize int, expiration time.Duration) *filecache.FDCache {
	// Use default cache if no custom size or expiration
	if maxSize <= 0 && expiration == 0 {
		return filecache.DefaultFDCache
	}

	// Normalize values
	if maxSize <= 0 {
		maxSize = 100 // Default 100 file descriptors
	}
	if expiration == 0 {
		expiration = 5 * time.Minute // Default 5 minutes
	}

	// Create a key for the cache configuration
	key := fmt.Sprintf("fd:%d:%d", maxSize, expiration.Nanoseconds())

	// Check if we already have a cache instance for this configuration
	fdCacheMap.RLock()
	cache, exists := fdCacheMap.instances[key]
	fdCacheMap.RUnlock()

	if exists {
		return cache
	}

	// Create a new cache instance
	cache = filecache.NewFDCache(maxSize, expiration)

	// Store it for future use
	fdCacheMap.Lock()
	fdCacheMap.instances[key] = cache
	fdCacheMap.Unlock()

	return cache
}

// serveFile serves a single file
func serveFile(c *Ctx, filePath string, fileInfo os.FileInfo, config Static) {
	// Determine content type using the cache
	contentType := getMimeType(filepath.Ext(filePath))

	// Check if in-memory caching is enabled
	if config.InMemoryCache {
		// Get or create a cache instance
		cache := getCacheInstance(config.MaxCacheSize, config.MaxCacheItems)

		// Fast path: try to get the file from cache first without checking modification time
		if cachedFile, exists := cache.Get(filePath); exists {
			// Only check modification time if the file exists in cache
			// This avoids an unnecessary stat call for cache misses
			if !fileInfo.ModTime().After(cachedFile.ModTime) {
				// Set headers
				setFileHeaders(c, filePath, fileInfo, config)

				// Call ModifyResponse if provided
				if config.ModifyResponse != nil {
					config.ModifyResponse(c)
				}

				// Set content type header
				c.Set("Content-Type", cachedFile.ContentType)

				// Serve from cache
				c.Data(cachedFile.ContentType, cachedFile.Data)
				return
			}
		}

		// Skip caching for large files (> 1MB) to avoid memory pressure
		// Large files are better served directly from disk
		if fileInfo.Size() > 1024*1024 {
			// Set headers
			setFileHeaders(c, filePath, fileInfo, config)

			// Call ModifyResponse if provided
			if config.ModifyResponse != nil {
				config.ModifyResponse(c)
			}

			// Set content type header
			c.Set("Content-Type", contentType)

			// Open the file
			file, err := os.Open(filePath)
			if err != nil {
				c.Status(StatusInternalServerError)
				c.String("Error opening file")
				return
			}
			defer file.Close()

			// Stream directly to the response writer
			_, err = io.Copy(c.Writer, file)
			if err != nil {
				logger.Error().Err(err).Msg("Error streaming file to response")
			}
			return
		}

		// Get a file descriptor from the cache or open the file
		var file *os.File
		var err error

		// Try to get a cached file descriptor
		fdCache := getFDCacheInstance(100, 5*time.Minute)
		if fd, exists := fdCache.Get(filePath); exists && !fdCache.IsModified(filePath, fileInfo) {
			// Use the cached file descriptor
			file = fd.File

			// Seek to the beginning of the file
			if _, err = file.Seek(0, 0); err != nil {
				// If seeking fails, close and reopen the file
				fdCache.Remove(filePath)
				file, err = os.Open(filePath)
				if err != nil {
					c.Status(StatusInternalServerError)
					c.String("Error opening file")
					return
				}
				// Cache the new file descriptor
				fdCache.Set(filePath, file, fileInfo.ModTime(), fileInfo.Size())
			}
		} else {
			// Open the file
			file, err = os.Open(filePath)
			if err != nil {
				c.Status(StatusInternalServerError)
				c.String("Error opening file")
				return
			}
			// Cache the file descriptor
			fdCache.Set(filePath, file, fileInfo.ModTime(), fileInfo.Size())
		}

		// No need to close the file as it's managed by the cache

		// Get a buffer from the pool
		buf := filebuffer.GetBuffer()
		defer filebuffer.ReleaseBuffer(buf)

		// Reset the buffer to ensure it's empty
		buf.Reset()

		// Use io.Copy to efficiently stream the file to the buffer
		// This avoids manual read/write loops and is more efficient
		_, err = io.Copy(buf, file)
		if err != nil {
			c.Status(StatusInternalServerError)
			c.String("Error reading file")
			return
		}

		// Cache the file content directly from buffer
		// This avoids an extra allocation and copy
		cache.Set(filePath, buf.Bytes(), fileInfo.ModTime(), fileInfo.Size(), contentType)

		// Set headers
		setFileHeaders(c, filePath, fileInfo, config)

		// Call ModifyResponse if provided
		if config.ModifyResponse != nil {
			config.ModifyResponse(c)
		}

		// Set content type header
		c.Set("Content-Type", contentType)

		// Stream the buffer directly to the response writer
		// This avoids an extra allocation and copy
		_, _ = c.Writer.Write(buf.Bytes())
		return
	}

	// In-memory caching disabled, use file descriptor cache

	// For large files (> 1MB), use a more efficient approach
	if fileInfo.Size() > 1024*1024 {
		// Set headers
		setFileHeaders(c, filePath, fileInfo, config)

		// Call ModifyResponse if provided
		if config.ModifyResponse != nil {
			config.ModifyResponse(c)
		}

		// Set content type header
		c.Set("Content-Type", contentType)

		// Open the file directly without caching the descriptor
		// This is more efficient for large files that are accessed infrequently
		file, err := os.Open(filePath)
		if err != nil {
			c.Status(StatusInternalServerError)
			c.String("Error opening file")
			return
		}
		defer file.Close()

		// Stream directly to the response writer
		_, err = io.Copy(c.Writer, file)
		if err != nil {
			logger.Error().Err(err).Msg("Error streaming file to response")
		}
		return
	}

	// For smaller files, use the file descriptor cache
	var file *os.File
	var err error

	// Try to get a cached file descriptor
	fdCache := getFDCacheInstance(100, 5*time.Minute)
	if fd, exists := fdCache.Get(filePath); exists && !fdCache.IsModified(filePath, fileInfo) {
		// Use the cached file descriptor
		file = fd.File

		// Seek to the beginning of the file
		if _, err = file.Seek(0, 0); err != nil {
			// If seeking fails, close and reopen the file
			fdCache.Remove(filePath)
			file, err = os.Open(filePath)
			if err != nil {
				c.Status(StatusInternalServerError)
				c.String("Error opening file")
				return
			}
			// Cache the new file descriptor
			fdCache.Set(filePath, file, fileInfo.ModTime(), fileInfo.Size())
		}
	} else {
		// Open the file
		file, err = os.Open(filePath)
		if err != nil {
			c.Status(StatusInternalServerError)
			c.String("Error opening file")
			return
		}
		// Cache the file descriptor
		fdCache.Set(filePath, file, fileInfo.ModTime(), fileInfo.Size())
	}

	// No need to close the file as it's managed by the cache

	// Set headers
	setFileHeaders(c, filePath, fileInfo, config)

	// Call ModifyResponse if provided
	if config.ModifyResponse != nil {
		config.ModifyResponse(c)
	}

	// Set content type header
	c.Set("Content-Type", contentType)

	// Use io.Copy to efficiently stream the file directly to the response writer
	// This avoids manual read/write loops and buffer allocations
	_, err = io.Copy(c.Writer, file)
	if err != nil {
		logger.Error().Err(err).Msg("Error streaming file to response")
	}
}

// serveFileWithRange serves a file with HTTP range support
func serveFileWithRange(c *Ctx, filePath string, fileInfo os.FileInfo, config Static) {
	rangeHeader := c.Get("Range")
	if !strings.HasPrefix(rangeHeader, "bytes=") {
		// Invalid range header, serve the whole file
		serveFile(c, filePath, fileInfo, config)
		return
	}

	fileSize := fileInfo.Size()
	ranges := parseRangeHeader(rangeHeader[6:], fileSize) // Remove "bytes=" prefix

	if len(ranges) == 0 {
		// Invalid range, return 416 Range Not Satisfiable
		c.Status(StatusRequestedRangeNotSatisfiable)
		c.Set("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		return
	}

	// For simplicity, only handle single range requests
	if len(ranges) > 1 {
		serveFile(c, filePath, fileInfo, config)
		return
	}

	r := ranges[0]

	// Determine content type using the cache
	contentType := getMimeType(filepath.Ext(filePath))

	// Check if in-memory caching is enabled
	if config.InMemoryCache {
		// Get or create a cache instance
		cache := getCacheInstance(config.MaxCacheSize, config.MaxCacheItems)

		// Fast path: try to get the file from cache first without checking modification time
		if cachedFile, exists := cache.Get(filePath); exists {
			// Only check modification time if the file exists in cache
			// This avoids an unnecessary stat call for cache misses
			if !fileInfo.ModTime().After(cachedFile.ModTime) {
				// Extract the requested range from the file data
				if r.end >= int64(len(cachedFile.Data)) {
					r.end = int64(len(cachedFile.Data)) - 1
				}
				if r.start >= int64(len(cachedFile.Data)) {
					c.Status(StatusRequestedRangeNotSatisfiable)
					c.Set("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
					return
				}

				rangeLength := r.end - r.start + 1
				rangeData := cachedFile.Data[r.start : r.end+1]

				// Set range headers
				c.Status(StatusPartialContent)
				c.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", r.start, r.end, fileSize))
				c.Set("Accept-Ranges", "bytes")
				c.Set("Content-Length", strconv.FormatInt(rangeLength, 10))

				// Set other headers
				setFileHeaders(c, filePath, fileInfo, config)

				// Call ModifyResponse if provided
				if config.ModifyResponse != nil {
					config.ModifyResponse(c)
				}

				// Set content type header
				c.Set("Content-Type", cachedFile.ContentType)

				// Send the range content
				c.Data(cachedFile.ContentType, rangeData)
				return
			}
		}

		// Get a file descriptor from the cache or open the file
		var file *os.File
		var err error

		// Try to get a cached file descriptor
		fdCache := getFDCacheInstance(100, 5*time.Minute)
		if fd, exists := fdCache.Get(filePath); exists && !fdCache.IsModified(filePath, fileInfo) {
			// Use the cached file descriptor
			file = fd.File

			// Seek to the beginning of the file
			if _, err = file.Seek(0, 0); err != nil {
				// If seeking fails, close and reopen the file
				fdCache.Remove(filePath)
				file, err = os.Open(filePath)
				if err != nil {
					c.Status(StatusInternalServerError)
					c.String("Error opening file")
					return
				}
				// Cache the new file descriptor
				fdCache.Set(filePath, file, fileInfo.ModTime(), fileInfo.Size())
			}
		} else {
			// Open the file
			file, err = os.Open(filePath)
			if err != nil {
				c.Status(StatusInternalServerError)
				c.String("Error opening file")
				return
			}
			// Cache the file descriptor
			fdCache.Set(filePath, file, fileInfo.ModTime(), fileInfo.Size())
		}

		// No need to close the file as it's managed by the cache

		// Get a buffer from the pool
		buf := filebuffer.GetBuffer()
		defer filebuffer.ReleaseBuffer(buf)

		// Reset the buffer to ensure it's empty
		buf.Reset()

		// Use io.Copy to efficiently stream the file to the buffer
		// This avoids manual read/write loops and is more efficient
		_, err = io.Copy(buf, file)
		if err != nil {
			c.Status(StatusInternalServerError)
			c.String("Error reading file")
			return
		}

		// Get the data from the buffer
		fileData := buf.Bytes()

		// Cache the file content directly from buffer
		// The Set method will make a copy of the data
		cache.Set(filePath, fileData, fileInfo.ModTime(), fileInfo.Size(), contentType)

		// Extract the requested range from the file data
		if r.end >= int64(len(fileData)) {
			r.end = int64(len(fileData)) - 1
		}
		if r.start >= int64(len(fileData)) {
			c.Status(StatusRequestedRangeNotSatisfiable)
			c.Set("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
			return
		}

		rangeLength := r.end - r.start + 1
		rangeData := fileData[r.start : r.end+1]

		// Set range headers
		c.Status(StatusPartialContent)
		c.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", r.start, r.end, fileSize))
		c.Set("Accept-Ranges", "bytes")
		c.Set("Content-Length", strconv.FormatInt(rangeLength, 10))

		// Set other headers
		setFileHeaders(c, filePath, fileInfo, config)

		// Call ModifyResponse if provided
		if config.ModifyResponse != nil {
			config.ModifyResponse(c)
		}

		// Set content type header
		c.Set("Content-Type", contentType)

		// Send the range content
		c.Data(contentType, rangeData)
		return
	}

	// In-memory caching disabled, use file descriptor cache
	var file *os.File
	var err error

	// Try to get a cached file descriptor
	fdCache := getFDCacheInstance(100, 5*time.Minute)
	if fd, exists := fdCache.Get(filePath); exists && !fdCache.IsModified(filePath, fileInfo) {
		// Use the cached file descriptor
		file = fd.File

		// Seek to the requested position in the file
		if _, err = file.Seek(r.start, 0); err != nil {
			// If seeking fails, close and reopen the file
			fdCache.Remove(filePath)
			file, err = os.Open(filePath)
			if err != nil {
				c.Status(StatusInternalServerError)
				c.String("Error opening file")
				return
			}
			// Seek to the requested position
			if _, err = file.Seek(r.start, 0); err != nil {
				c.Status(StatusInternalServerError)
				c.String("Error seeking file")
				return
			}
			// Cache the new file descriptor
			fdCache.Set(filePath, file, fileInfo.ModTime(), fileInfo.Size())
		}
	} else {
		// Open the file
		file, err = os.Open(filePath)
		if err != nil {
			c.Status(StatusInternalServerError)
			c.String("Error opening file")
			return
		}
		// Seek to the requested position
		if _, err = file.Seek(r.start, 0); err != nil {
			c.Status(StatusInternalServerError)
			c.String("Error seeking file")
			return
		}
		// Cache the file descriptor
		fdCache.Set(filePath, file, fileInfo.ModTime(), fileInfo.Size())
	}

	// No need to close the file as it's managed by the cache

	// Calculate the range length
	rangeLength := r.end - r.start + 1

	// Set range headers
	c.Status(StatusPartialContent)
	c.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", r.start, r.end, fileSize))
	c.Set("Accept-Ranges", "bytes")
	c.Set("Content-Length", strconv.FormatInt(rangeLength, 10))

	// Set other headers
	setFileHeaders(c, filePath, fileInfo, config)

	// Call ModifyResponse if provided
	if config.ModifyResponse != nil {
		config.ModifyResponse(c)
	}

	// Set content type header
	c.Set("Content-Type", contentType)

	// Use io.CopyN to efficiently stream the range directly to the response writer
	// This avoids buffer allocations and manual read/write loops
	_, err = io.CopyN(c.Writer, file, rangeLength)
	if err != nil && err != io.EOF {
		logger.Error().Err(err).Msg("Error streaming file range to response")
	}
}

// serveDirectoryListing serves a directory listing
func serveDirectoryListing(c *Ctx, dirPath, urlPath string, config Static) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		c.Status(StatusInternalServerError)
		c.String("Error reading directory")
		return
	}

	// Build HTML directory listing
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<title>Directory listing for %s</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 20px; }
		table { border-collapse: collapse; width: 100%%; }
		th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
		th { background-color: #f2f2f2; }
		a { text-decoration: none; color: #0066cc; }
		a:hover { text-decoration: underline; }
	</style>
</head>
<body>
	<h1>Directory listing for %s</h1>
	<table>
		<tr><th>Name</th><th>Size</th><th>Modified</th></tr>`, urlPath, urlPath)

	// Add parent directory link if not at root
	if urlPath != "/" {
		html += `<tr><td><a href="../">../</a></td><td>-</td><td>-</td></tr>`
	}

	// Add entries
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}

		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}

		size := "-"
		if !entry.IsDir() {
			size = formatFileSize(info.Size())
		}

		modTime := info.ModTime().Format("2006-01-02 15:04:05")
		html += fmt.Sprintf(`<tr><td><a href="%s">%s</a></td><td>%s</td><td>%s</td></tr>`,
			name, name, size, modTime)
	}

	html += `</table></body></html>`

	c.HTML(html)
}

// mimeTypeCache caches content types by file extension to avoid repeated lookups
var mimeTypeCache = struct {
	sync.RWMutex
	types map[string]string
}{
	types: map[string]string{
		".html":  MIMETextHTMLCharsetUTF8,
		".css":   MIMETextCSSCharsetUTF8,
		".js":    MIMEApplicationJavaScriptCharsetUTF8,
		".json":  MIMEApplicationJSON,
		".png":   "image/png",
		".jpg":   "image/jpeg",
		".jpeg":  "image/jpeg",
		".gif":   "image/gif",
		".svg":   "image/svg+xml",
		".ico":   "image/x-icon",
		".txt":   MIMETextPlainCharsetUTF8,
		".pdf":   "application/pdf",
		".xml":   MIMEApplicationXML,
		".woff":  "font/woff",
		".woff2": "font/woff2",
		".ttf":   "font/ttf",
		".eot":   "application/vnd.ms-fontobject",
		".otf":   "font/otf",
		".zip":   "application/zip",
		".mp4":   "video/mp4",
		".webm":  "video/webm",
		".mp3":   "audio/mpeg",
		".wav":   "audio/wav",
	},
}

// getMimeType returns the content type for a file extension
// It uses the cache if available, otherwise falls back to mime.TypeByExtension
func getMimeType(ext string) string {
	// Check the cache first
	mimeTypeCache.RLock()
	contentType, exists := mimeTypeCache.types[ext]
	mimeTypeCache.RUnlock()

	if exists {
		return contentType
	}

	// Fall back to standard library
	contentType = mime.TypeByExtension(ext)
	if contentType == "" {
		return MIMEOctetStream
	}

	// Cache the result for future use
	mimeTypeCache.Lock()
	mimeTypeCache.types[ext] = contentType
	mimeTypeCache.Unlock()

	return contentType
}

// setFileHeaders sets common headers for file responses
// This optimized version reduces allocations by using pre-allocated header names
// and combining multiple header settings where possible
func setFileHeaders(c *Ctx, filePath string, fileInfo os.FileInfo, config Static) {
	// Set Last-Modified header
	c.Set(HeaderLastModified, fileInfo.ModTime().UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"))

	// Set Cache-Control header
	if config.MaxAge > 0 {
		c.Set(HeaderCacheControl, fmt.Sprintf("public, max-age=%d", config.MaxAge))
	}

	// Set Content-Length header
	c.Set(HeaderContentLength, strconv.FormatInt(fileInfo.Size(), 10))

	// Set Content-Disposition for downloads
	if config.Download {
		filename := filepath.Base(filePath)
		c.Set(HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"%s\"", filename))
	}

	// Set Accept-Ranges header if byte range is supported
	if config.ByteRange {
		c.Set(HeaderAcceptRanges, "bytes")
	}
}

// httpRange represents a byte range request
type httpRange struct {
	start, end int64
}

// parseRangeHeader parses the Range header value
func parseRangeHeader(rangeSpec string, fileSize int64) []httpRange {
	var ranges []httpRange

	// Split multiple ranges by comma
	parts := strings.Split(rangeSpec, ",")

	for _, part := range parts {
		part = strings.TrimSpace(part)

		if strings.Contains(part, "-") {
			rangeParts := strings.SplitN(part, "-", 2)

			var start, end int64
			var err error

			if rangeParts[0] == "" {
				// Suffix-byte-range-spec (e.g., "-500")
				if rangeParts[1] == "" {
					continue // Invalid range
				}
				suffixLength, err := strconv.ParseInt(rangeParts[1], 10, 64)
				if err != nil || suffixLength >= fileSize {
					continue
				}
				start = fileSize - suffixLength
				end = fileSize - 1
			} else if rangeParts[1] == "" {
				// Range from start to end (e.g., "500-")
				start, err = strconv.ParseInt(rangeParts[0], 10, 64)
				if err != nil || start >= fileSize {
					continue
				}
				end = fileSize - 1
			} else {
				// Full range (e.g., "0-499")
				start, err = strconv.ParseInt(rangeParts[0], 10, 64)
				if err != nil {
					continue
				}
				end, err = strconv.ParseInt(rangeParts[1], 10, 64)
				if err != nil || start > end || start >= fileSize {
					continue
				}
				if end >= fileSize {
					end = fileSize - 1
				}
			}

			ranges = append(ranges, httpRange{start: start, end: end})
		}
	}

	return ranges
}

// formatFileSize formats file size in human-readable format
func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// isSubPath checks if target is a subdirectory of base
// This is more secure than using strings.HasPrefix as it prevents
// directory traversal attacks where directory names share prefixes
func isSubPath(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	return err == nil && !strings.HasPrefix(rel, "..")
}

// GET registers a new route with the GET method.
func (r *Router) GET(pattern string, handlers ...Handler) *Router {
	return r.Handle(pattern, MethodGet, handlers...)
}

// HEAD registers a new route with the HEAD method.
func (r *Router) HEAD(pattern string, handlers ...Handler) *Router {
	return r.Handle(pattern, MethodHead, handlers...)
}

// POST registers a new route with the POST method.
func (r *Router) POST(pattern string, handlers ...Handler) *Router {
	return r.Handle(pattern, MethodPost, handlers...)
}

// PUT registers a new route with the PUT method.
func (r *Router) PUT(pattern string, handlers ...Handler) *Router {
	return r.Handle(pattern, MethodPut, handlers...)
}

// DELETE registers a new route with the DELETE method.
func (r *Router) DELETE(pattern string, handlers ...Handler) *Router {
	return r.Handle(pattern, MethodDelete, handlers...)
}

// CONNECT registers a new route with the CONNECT method.
func (r *Router) CONNECT(pattern string, handlers ...Handler) *Router {
	return r.Handle(pattern, MethodConnect, handlers...)
}

// OPTIONS registers a new route with the OPTIONS method.
func (r *Router) OPTIONS(pattern string, handlers ...Handler) *Router {
	return r.Handle(pattern, MethodOptions, handlers...)
}

// TRACE registers a new route with the TRACE method.
func (r *Router) TRACE(pattern string, handlers ...Handler) *Router {
	return r.Handle(pattern, MethodTrace, handlers...)
}

// PATCH registers a new route with the PATCH method.
func (r *Router) PATCH(pattern string, handlers ...Handler) *Router {
	return r.Handle(pattern, MethodPatch, handlers...)
}

// STATIC registers a new route with the GET method.
func (r *Router) STATIC(prefix, root string, config ...Static) *Router {
	return r.HandleStatic(prefix, root, config...)
}

// We're using the paramSlicePool from param_struct.go instead of paramContextPool
// This reduces allocations and improves performance

// getParamContext gets a parameter slice from the pool
// This is a compatibility wrapper for the new paramSlice type
func getParamContext() *paramSlice {
	return getParamSlice()
}

// releaseParamContext returns a parameter slice to the pool
// This is a compatibility wrapper for the new paramSlice type
func releaseParamContext(ps *paramSlice) {
	releaseParamSlice(ps)
}

// releaseParamContextKey is the key used to store the function that releases the parameter context
type releaseParamContextKey struct{}

// paramContextReleaser is a struct that holds a parameter context to be released
type paramContextReleaser struct {
	paramCtx *paramSlice
}

// releaseParamContextPool is a pool of paramContextReleaser objects for reuse
var releaseParamContextPool = sync.Pool{
	New: func() interface{} {
		return &paramContextReleaser{}
	},
}

// paramsMapPool is a pool of map[string]string objects for reuse
var paramsMapPool = sync.Pool{
	New: func() interface{} {
		return make(map[string]string, 8) // Pre-allocate with capacity for 8 params
	},
}

// getParamsMap gets a parameter map from the pool
func getParamsMap() map[string]string {
	return paramsMapPool.Get().(map[string]string)
}

// releaseParamsMap returns a parameter map to the pool
func releaseParamsMap(m map[string]string) {
	// Clear the map
	for k := range m {
		delete(m, k)
	}
	paramsMapPool.Put(m)
}

// getParamContextReleaser gets a paramContextReleaser from the pool and initializes it
func getParamContextReleaser(paramCtx *paramSlice) *paramContextReleaser {
	releaser := releaseParamContextPool.Get().(*paramContextReleaser)
	releaser.paramCtx = paramCtx
	return releaser
}

// release releases the parameter context and returns the releaser to the pool
func (r *paramContextReleaser) release() {
	if r.paramCtx != nil {
		releaseParamContext(r.paramCtx)
		r.paramCtx = nil
	}
	releaseParamContextPool.Put(r)
}

// handleMatchedRoute handles a route that matched the path and method
func (r *Router) handleMatchedRoute(ctx *Ctx, req *Request, route route, matches []string, path string) {
	// Extract URL parameters using precomputed values
	if route.HasParams {
		// Get a parameter context map from the pool
		paramCtx := getParamContext()

		// Store parameters directly in the context's paramCache
		// This avoids the expensive context.WithValue and req.WithContext operations
		ctx.paramCache.params = paramCtx
		ctx.paramCache.valid = true

		// Pre-allocate the entries slice based on the precomputed parameter count
		if cap(paramCtx.entries) < route.ParamCount {
			paramCtx.entries = make([]paramEntry, 0, route.ParamCount)
		} else {
			paramCtx.entries = paramCtx.entries[:0]
		}

		// Extract parameters directly from regex matches using precomputed parameter names
		// The regex pattern is created to capture each parameter in order
		paramIndex := 1 // Start from 1 to skip the full match

		// Use the precomputed parameter names to avoid string slicing at runtime
		for _, paramName := range route.ParamNames {
			if paramIndex < len(matches) {
				// Add directly to the entries slice
				paramCtx.entries = append(paramCtx.entries, paramEntry{key: paramName, value: matches[paramIndex]})
				paramIndex++
			}
		}

		// Store the parameter context in the Ctx for later release
		// This avoids the expensive context.WithValue and req.WithContext operations
		ctx.UserData("__paramCtx", paramCtx)
	}

	// Update the request in the context
	ctx.Request = req

	// Set up the middleware stack with both global middleware and route handlers
	r.setupMiddleware(ctx, route.Handlers)
}

// setupMiddleware sets up the middleware stack for a request
func (r *Router) setupMiddleware(ctx *Ctx, handlers []Handler) {
	// Pre-calculate counts to avoid repeated len() calls
	handlerCount := len(handlers)
	if handlerCount == 0 {
		return // No handlers, nothing to do
	}

	// Fast path: if we have no middleware and only one handler, call it directly
	globalMiddlewareCount := len(r.middlewareFuncs)
	if globalMiddlewareCount == 0 && handlerCount == 1 {
		handlers[0](ctx)
		return
	}

	// Calculate the total middleware size
	totalMiddleware := globalMiddlewareCount + handlerCount - 1
	if totalMiddleware <= 0 {
		// No middleware and no handlers, or just one handler
		if handlerCount == 1 {
			handlers[0](ctx)
		}
		return
	}

	// Prepare the middleware stack
	// Try to reuse the existing slice first
	if cap(ctx.middlewareStack) >= totalMiddleware {
		// Reuse the existing slice
		ctx.middlewareStack = ctx.middlewareStack[:totalMiddleware]
	} else {
		// Get a middleware stack from the pool
		stack := middlewareStackPool.Get().([]MiddlewareFunc)

		if cap(stack) >= totalMiddleware {
			// Reuse the stack with the right size
			ctx.middlewareStack = stack[:totalMiddleware]
		} else {
			// Return the too-small stack to the pool
			middlewareStackPool.Put(stack)
			// Create a new stack with sufficient capacity
			// Add some extra capacity to reduce future allocations
			extraCapacity := 8
			if totalMiddleware > 32 {
				extraCapacity = totalMiddleware / 4 // 25% extra for large stacks
			}
			ctx.middlewareStack = make([]MiddlewareFunc, totalMiddleware, totalMiddleware+extraCapacity)
		}
	}

	// Copy the global middleware functions in one operation if any exist
	if globalMiddlewareCount > 0 {
		copy(ctx.middlewareStack[:globalMiddlewareCount], r.middlewareFuncs)
	}

	// Add all but the last handler as middleware
	// Use direct indexing for better performance
	if handlerCount > 1 {
		for i := 0; i < handlerCount-1; i++ {
			// We must use type conversion here as Handler and MiddlewareFunc are not directly compatible
			ctx.middlewareStack[globalMiddlewareCount+i] = MiddlewareFunc(handlers[i])
		}
	}

	// Set the last handler as the final handler
	ctx.middlewareIndex = -1
	ctx.handler = handlers[handlerCount-1]

	// Call the first middleware function
	ctx.Next()
}

// Pre-allocated handler for method not allowed responses
var methodNotAllowedHandler = func(c *Ctx) {
	c.Status(StatusMethodNotAllowed)
	// The Allow header will be set before this handler is called
	c.String("Method Not Allowed")
}

// ServeHTTP implements a modified http.Handler interface that accepts a Ctx.
func (r *Router) ServeHTTP(ctx *Ctx, req *Request) {
	path := req.URL.Path
	method := req.Method

	// Fast path: try to find a match using the radix tree
	if tree, exists := r.routeTrees[method]; exists {
		// Get a map from the pool to store path parameters
		params := getParamsMap()

		// Try to find a match in the radix tree
		if handlers, found := tree.Find(path, params); found {
			if handlerSlice, ok := handlers[method].([]Handler); ok {
				// We found a match, handle it
				// Create a context with the parameters
				if len(params) > 0 {
					// Get a parameter context map from the pool
					paramCtx := getParamContext()

					// Store parameters directly in the context's paramCache
					// This avoids the expensive context.WithValue call
					ctx.paramCache.params = paramCtx
					ctx.paramCache.valid = true

					// Pre-allocate the entries slice if needed
					if cap(paramCtx.entries) < len(params) {
						paramCtx.entries = make([]paramEntry, 0, len(params))
					} else {
						paramCtx.entries = paramCtx.entries[:0]
					}

					// Copy parameters from the radix tree match
					// Add all parameters to the slice in one pass
					for k, v := range params {
						paramCtx.entries = append(paramCtx.entries, paramEntry{key: k, value: v})
					}

					// We still need to release the parameter context when done
					// Store the original request context to avoid losing any existing context values
					originalReqCtx := req.Context()

					// Create a context that will release the parameter context when done
					reqCtx := context.WithValue(originalReqCtx, releaseParamContextKey{}, func() {
						releaseParamContext(paramCtx)
					})

					req = req.WithContext(reqCtx)
					ctx.Request = req
				}

				// Release the params map back to the pool
				releaseParamsMap(params)

				// Set up middleware and call the handler
				r.setupMiddleware(ctx, handlerSlice)
				return
			}
		}

		// Release the params map back to the pool if no match was found
		releaseParamsMap(params)
	}

	// Fallback to regex-based routing for backward compatibility
	methodRoutes, hasMethodRoutes := r.routesByMethod[method]
	if hasMethodRoutes {
		// Use a more efficient loop with index for better performance
		for i := 0; i < len(methodRoutes); i++ {
			route := &methodRoutes[i]
			matches := route.Regex.FindStringSubmatch(path)
			if len(matches) > 0 {
				// We found a match, handle it
				r.handleMatchedRoute(ctx, req, *route, matches, path)
				return
			}
		}
	}

	// If we didn't find a match, check for method not allowed
	// Get allowed methods from the pool
	allowedMethods := allowedMethodsPool.Get().([]string)
	allowedMethods = allowedMethods[:0]
	methodNotAllowed := false

	// Check for method not allowed using radix trees first
	for treeMethod, tree := range r.routeTrees {
		if treeMethod == method {
			continue
		}

		// Try to find a match in the radix tree for other methods
		if _, found := tree.Find(path, nil); found {
			methodNotAllowed = true
			allowedMethods = append(allowedMethods, treeMethod)
		}
	}

	// If we didn't find method not allowed using radix trees, fall back to regex
	if !methodNotAllowed {
		// Use a more efficient approach to find allowed methods
		// Pre-allocate a map to track methods we've already seen
		methodSeen := make(map[string]bool, 8)

		// Check all routes for path matches with different methods
		for i := 0; i < len(r.Routes); i++ {
			route := &r.Routes[i]
			// Skip routes we already checked
			if route.Method == method {
				continue
			}

			// Skip methods we've already seen
			if methodSeen[route.Method] {
				continue
			}

			matches := route.Regex.FindStringSubmatch(path)
			if len(matches) > 0 {
				// Path matches but method doesn't match
				methodNotAllowed = true
				methodSeen[route.Method] = true
				allowedMethods = append(allowedMethods, route.Method)
			}
		}
	}

	// If we found a matching path but method was not allowed, return 405 Method Not Allowed
	if methodNotAllowed {
		// Filter out HEAD method if GET is already present to match test expectations
		// This is because HEAD is automatically added for GET routes
		if len(allowedMethods) > 1 {
			hasGet := false
			hasHead := false
			for _, m := range allowedMethods {
				if m == MethodGet {
					hasGet = true
				} else if m == MethodHead {
					hasHead = true
				}
			}

			// If both GET and HEAD are present, and HEAD was automatically added for GET,
			// filter out HEAD to match test expectations
			if hasGet && hasHead {
				filteredMethods := make([]string, 0, len(allowedMethods)-1)
				for _, m := range allowedMethods {
					if m != MethodHead {
						filteredMethods = append(filteredMethods, m)
					}
				}
				allowedMethods = filteredMethods
			}
		}

		// Set the Allow header
		// Use a string builder to avoid allocations when joining allowed methods
		var allowHeader string
		if len(allowedMethods) == 1 {
			// Fast path for single method
			allowHeader = allowedMethods[0]
		} else {
			// Use a string builder for multiple methods
			sb := stringBuilderPool.Get().(*strings.Builder)
			sb.Reset()

			for i, m := range allowedMethods {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(m)
			}

			allowHeader = sb.String()
			stringBuilderPool.Put(sb)
		}

		ctx.Set(HeaderAllow, allowHeader)

		// Return allowed methods to the pool
		allowedMethodsPool.Put(allowedMethods)

		// Set up middleware and call the handler
		r.setupMiddleware(ctx, []Handler{methodNotAllowedHandler})
		return
	}

	// Return allowed methods to the pool if we didn't use them
	allowedMethodsPool.Put(allowedMethods)

	// No route matched, use the NotFound handler
	r.setupMiddleware(ctx, []Handler{r.NotFound})
}
