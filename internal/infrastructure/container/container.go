package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"tzweb/internal/application/port"
	"tzweb/internal/infrastructure/browser"
	"tzweb/internal/infrastructure/config"
	"tzweb/internal/infrastructure/storage"
	"tzweb/internal/infrastructure/storage/composite"
	parquetexport "tzweb/internal/infrastructure/storage/parquet"
	pgrepo "tzweb/internal/infrastructure/storage/postgres"
	redisrepo "tzweb/internal/infrastructure/storage/redis"
	sqliterepo "tzweb/internal/infrastructure/storage/sqlite"
)

// Container 包含所有基础设施依赖
type Container struct {
	cfg          *config.Config
	page         *browser.Page
	redisClient  *redis.Client
	sqliteRepo   *sqliterepo.Repo
	postgresRepo *pgrepo.Repo
	redisRepo    *redisrepo.Repo
	repo         port.Repository
	exporter     *parquetexport.Exporter
	closeOnce    sync.Once
	closerChain  []func() error
}

// New 创建新的容器实例；浏览器连接延迟到第一次使用
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	// 初始化存储层
	if cfg.Storage.Enabled {
		if err := c.initStorage(ctx); err != nil {
			// 清理已初始化的资源
			_ = c.Close()
			return nil, err
		}
	}
	c.repo = c.buildRepository()

	if cfg.Export.ParquetDir != "" {
		c.exporter = parquetexport.NewExporter(cfg.Export.ParquetDir)
	}

	c.page = browser.NewPage(cfg.Browser.CDPURL, cfg.Browser.TabFilter, cfg.EvalTimeout())
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing browser session")
		return c.page.Close()
	})

	return c, nil
}

// initStorage 初始化存储层（Redis、SQLite、Postgres）
func (c *Container) initStorage(ctx context.Context) error {
	// Redis
	if c.cfg.Storage.Redis.Enabled {
		if err := c.initRedis(ctx); err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
	}

	// SQLite
	if c.cfg.Storage.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
	}

	// Postgres
	if c.cfg.Storage.Postgres.Enabled {
		if err := c.initPostgres(ctx); err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
	}

	return nil
}

// initRedis 初始化 Redis 连接
func (c *Container) initRedis(ctx context.Context) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.cfg.Storage.Redis.Addr,
		Password: c.cfg.Storage.Redis.Password,
		DB:       c.cfg.Storage.Redis.DB,
	})

	// 测试连接
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	ttl := time.Duration(c.cfg.Storage.Redis.TTLSeconds) * time.Second

	c.redisRepo = redisrepo.New(
		rdb,
		c.cfg.Storage.Redis.Prefix,
		ttl,
		c.cfg.Storage.Redis.CancelStream,
		c.cfg.Storage.Redis.CancelChan,
	)

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", c.cfg.Storage.Redis.Addr).
		Int("db", c.cfg.Storage.Redis.DB).
		Msg("redis initialized")

	return nil
}

// initSQLite 初始化 SQLite 数据库
func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}

	c.sqliteRepo = repo

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", c.cfg.Storage.SQLite.Path).
		Msg("sqlite initialized")

	return nil
}

// initPostgres 初始化 Postgres 连接池
func (c *Container) initPostgres(ctx context.Context) error {
	repo, err := pgrepo.New(ctx, c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}

	c.postgresRepo = repo

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres pool")
		return repo.Close()
	})

	log.Info().Msg("postgres initialized")
	return nil
}

// buildRepository 组合已启用的后端；都未启用时退回内存实现
func (c *Container) buildRepository() port.Repository {
	var repos []port.Repository
	if c.sqliteRepo != nil {
		repos = append(repos, c.sqliteRepo)
	}
	if c.postgresRepo != nil {
		repos = append(repos, c.postgresRepo)
	}
	if c.redisRepo != nil {
		repos = append(repos, c.redisRepo)
	}
	switch len(repos) {
	case 0:
		log.Debug().Msg("no storage backend enabled, journal kept in memory")
		return storage.NewMemoryRepo()
	case 1:
		return repos[0]
	}
	return composite.New(repos...)
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// Page 获取浏览器页面会话
func (c *Container) Page() *browser.Page {
	return c.page
}

// Repository 获取组合后的仓储（后端由容器关闭）
func (c *Container) Repository() port.Repository {
	return c.repo
}

// Exporter 获取 parquet 导出器；未配置时为 nil
func (c *Container) Exporter() port.HistoryExporter {
	if c.exporter == nil {
		return nil
	}
	return c.exporter
}

// RedisClient 获取 Redis 客户端
func (c *Container) RedisClient() *redis.Client {
	return c.redisClient
}

// SQLiteRepo 获取 SQLite 仓储
func (c *Container) SQLiteRepo() *sqliterepo.Repo {
	return c.sqliteRepo
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
