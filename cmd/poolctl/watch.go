package main

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	workerpool "github.com/simplely77/elasticpool"
)

// defaultDebounce 编辑器保存时往往连续产生多个事件,合并为一次重载
const defaultDebounce = 100 * time.Millisecond

// reloadFunc 配置文件变更回调,err 非空表示重新加载失败
type reloadFunc func(cfg workerpool.Config, err error)

// configWatcher 监视配置文件,变更后重新加载并回调
type configWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	callback reloadFunc
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	timer *time.Timer
	// inflight 正在执行的回调
	inflight sync.WaitGroup
}

// watchConfig 创建并启动监视器。
// 监视的是文件所在目录而不是文件本身,原子写入 (写临时文件再 rename) 会让文件级监视丢失后续事件。
func watchConfig(path string, debounce time.Duration, callback reloadFunc) (*configWatcher, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create config watcher")
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, errors.Wrapf(err, "watch directory %s", dir)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &configWatcher{
		path:     path,
		watcher:  fsw,
		callback: callback,
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close 停止监视,等待执行中的回调结束,返回后不会再触发回调
func (w *configWatcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.cancel()
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	w.inflight.Wait()
	return err
}

func (w *configWatcher) run() {
	defer close(w.done)
	filename := filepath.Base(w.path)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.callback(workerpool.Config{}, errors.Wrap(err, "config watch"))
		}
	}
}

func (w *configWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *configWatcher) reload() {
	// 取消与 Add 都在 mu 内,Close 取消之后不会再有新的 Add
	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	cfg, err := workerpool.LoadConfig(w.path)
	w.callback(cfg, err)
}
