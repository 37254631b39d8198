package inheritchain

import (
	"strings"

	"github.com/EnzoRoselli/InheritChain/schema"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Wdb struct {
	Db *gorm.DB
}

func NewWdb(dsn string) *Wdb {
	logLevel := logger.Error
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logLevel),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect db success")
	return &Wdb{Db: db}
}

func NewSqliteDb(dbPath string) *Wdb {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.Message{})
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}

func (w *Wdb) InsertMessage(msg *schema.Message) error {
	return w.Db.Create(msg).Error
}

func (w *Wdb) GetMessage(id uint) (res schema.Message, err error) {
	err = w.Db.First(&res, id).Error
	return
}

// GetMessagesByAdmin lists the messages one administrator left on one
// inheritance, newest first.
func (w *Wdb) GetMessagesByAdmin(adminAddress, inheritanceAddress string) ([]schema.Message, error) {
	res := make([]schema.Message, 0, 10)
	err := w.Db.Where("admin_address = ? AND inheritance_address = ?", adminAddress, inheritanceAddress).
		Order("id desc").Find(&res).Error
	return res, err
}

// GetMessagesByHeir filters recipients in Go: the addresses live inside a
// JSON column and recipient matching is case-insensitive.
func (w *Wdb) GetMessagesByHeir(heirAddress string) ([]schema.Message, error) {
	all := make([]schema.Message, 0, 10)
	if err := w.Db.Order("id desc").Find(&all).Error; err != nil {
		return nil, err
	}
	res := make([]schema.Message, 0, len(all))
	for _, msg := range all {
		refs, err := msg.Recipients()
		if err != nil {
			log.Warn("decode message recipients", "id", msg.ID, "err", err)
			continue
		}
		for _, ref := range refs {
			if strings.EqualFold(ref.HeirAddress, heirAddress) {
				res = append(res, msg)
				break
			}
		}
	}
	return res, nil
}

func (w *Wdb) UpdateMessageHeirs(id uint, refs []schema.HeirRef) error {
	msg, err := w.GetMessage(id)
	if err != nil {
		return err
	}
	if err := msg.SetRecipients(refs); err != nil {
		return err
	}
	return w.Db.Model(&schema.Message{}).Where("id = ?", id).Update("heir_addresses", msg.HeirAddresses).Error
}

func (w *Wdb) DeleteMessage(id uint) error {
	return w.Db.Delete(&schema.Message{}, id).Error
}
